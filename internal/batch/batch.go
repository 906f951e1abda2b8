// Package batch renders one certificate per name from a single template
// snapshot.
package batch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	imagepkg "github.com/youruser/certapp/internal/image"
	"github.com/youruser/certapp/internal/names"
	"github.com/youruser/certapp/internal/template"
)

var (
	ErrEmptyNameList = errors.New("no usable names")
	ErrTooManyNames  = errors.New("too many names")
)

// RenderError records a single name that failed while the rest of the batch
// carried on.
type RenderError struct {
	Index int
	Name  string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %q: %v", e.Name, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Result is one rendered certificate.
type Result struct {
	Name     string
	Filename string
	Data     []byte
}

// Report is the outcome of a batch. Results keep the order of the filtered
// input; names that failed are listed in Failures instead.
type Report struct {
	Total    int
	Results  []Result
	Failures []*RenderError
}

func (r *Report) FailedNames() []string {
	out := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		out = append(out, f.Name)
	}
	return out
}

// Source supplies the template. It is read exactly once per batch.
type Source interface {
	Snapshot() template.Template
}

type Renderer interface {
	Render(ctx context.Context, tpl template.Template, substitution string, opts imagepkg.Options) ([]byte, error)
}

type Config struct {
	// MaxNames caps a single batch; zero means unlimited.
	MaxNames int
}

type Orchestrator struct {
	renderer Renderer
	cfg      Config
	log      *zap.Logger
}

func New(renderer Renderer, cfg Config, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{renderer: renderer, cfg: cfg, log: log}
}

type options struct {
	render   imagepkg.Options
	observer Observer
}

type Option func(*options)

// WithMultiplier sets the output resolution multiplier.
func WithMultiplier(m int) Option {
	return func(o *options) { o.render.Multiplier = m }
}

// WithObserver reports progress to obs.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// Generate renders every non-blank name, in input order, against one snapshot
// of src. A failure that would repeat for every name (missing background, no
// placeholders, unusable font or multiplier) aborts the batch; other per-name
// failures are collected in the report. Cancelling ctx stops before the next
// name and returns the partial report with ctx.Err().
func (o *Orchestrator) Generate(ctx context.Context, src Source, rawNames []string, opts ...Option) (report *Report, err error) {
	cfg := options{observer: nopObserver{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	list := names.Filter(rawNames)
	cfg.observer.Begin(len(list))
	defer func() { cfg.observer.End(err) }()

	if len(list) == 0 {
		return nil, ErrEmptyNameList
	}
	if o.cfg.MaxNames > 0 && len(list) > o.cfg.MaxNames {
		return nil, fmt.Errorf("%w: %d (limit %d)", ErrTooManyNames, len(list), o.cfg.MaxNames)
	}

	tpl := src.Snapshot()
	if err := tpl.Validate(); err != nil {
		return nil, err
	}

	log := o.log.With(zap.Int("names", len(list)), zap.Int("placeholders", len(tpl.Placeholders)))
	log.Info("batch started")

	report = &Report{Total: len(list), Results: make([]Result, 0, len(list))}
	for i, name := range list {
		if err := ctx.Err(); err != nil {
			log.Warn("batch cancelled", zap.Int("rendered", len(report.Results)))
			return report, err
		}

		data, err := o.renderer.Render(ctx, tpl, name, cfg.render)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			if systemic(err) {
				log.Error("batch aborted", zap.String("name", name), zap.Error(err))
				return report, fmt.Errorf("batch aborted at %q: %w", name, err)
			}
			rerr := &RenderError{Index: i, Name: name, Err: err}
			report.Failures = append(report.Failures, rerr)
			log.Warn("certificate failed", zap.String("name", name), zap.Error(err))
			cfg.observer.Advance(name, rerr)
			continue
		}

		report.Results = append(report.Results, Result{
			Name:     name,
			Filename: names.Filename(name),
			Data:     data,
		})
		cfg.observer.Advance(name, nil)
	}

	log.Info("batch finished",
		zap.Int("rendered", len(report.Results)),
		zap.Int("failed", len(report.Failures)),
	)
	return report, nil
}

func systemic(err error) bool {
	var decodeErr *template.DecodeError
	return errors.Is(err, template.ErrNoBackground) ||
		errors.Is(err, template.ErrEmptyTemplate) ||
		errors.Is(err, imagepkg.ErrUnknownFont) ||
		errors.Is(err, imagepkg.ErrInvalidMultiplier) ||
		errors.As(err, &decodeErr)
}
