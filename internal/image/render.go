package imagepkg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/youruser/certapp/internal/template"
)

var (
	ErrEmptySubstitution = errors.New("empty substitution text")
	ErrInvalidMultiplier = errors.New("invalid resolution multiplier")
)

// Options tune a single render.
type Options struct {
	// Multiplier scales output pixels, positions and font sizes uniformly.
	// Zero means the renderer default.
	Multiplier int
}

type Config struct {
	DefaultMultiplier int
	MaxMultiplier     int
}

func DefaultConfig() Config {
	return Config{DefaultMultiplier: 1, MaxMultiplier: 4}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.DefaultMultiplier <= 0 {
		c.DefaultMultiplier = defaults.DefaultMultiplier
	}
	if c.MaxMultiplier <= 0 {
		c.MaxMultiplier = defaults.MaxMultiplier
	}
	if c.DefaultMultiplier > c.MaxMultiplier {
		c.MaxMultiplier = c.DefaultMultiplier
	}
	return c
}

// Renderer turns template snapshots into flattened PNG images.
type Renderer struct {
	fonts *FontRegistry
	cfg   Config
	log   *zap.Logger
}

func NewRenderer(fonts *FontRegistry, cfg Config, log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{fonts: fonts, cfg: cfg.withDefaults(), log: log}
}

func (r *Renderer) Fonts() *FontRegistry { return r.fonts }

func (r *Renderer) multiplier(opts Options) (int, error) {
	m := opts.Multiplier
	if m == 0 {
		m = r.cfg.DefaultMultiplier
	}
	if m < 1 || m > r.cfg.MaxMultiplier {
		return 0, fmt.Errorf("%w: %d (allowed 1..%d)", ErrInvalidMultiplier, m, r.cfg.MaxMultiplier)
	}
	return m, nil
}

// Render draws substitution into every placeholder of tpl and returns the PNG
// encoding. Output is (width*m) x (height*m) where m is the multiplier.
func (r *Renderer) Render(ctx context.Context, tpl template.Template, substitution string, opts Options) ([]byte, error) {
	img, err := r.Compose(ctx, tpl, substitution, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	r.log.Debug("certificate rendered",
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()),
		zap.Int("bytes", buf.Len()),
	)
	return buf.Bytes(), nil
}

// Compose is Render without the PNG encoding step.
func (r *Renderer) Compose(ctx context.Context, tpl template.Template, substitution string, opts Options) (*image.NRGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(substitution)
	if name == "" {
		return nil, ErrEmptySubstitution
	}
	m, err := r.multiplier(opts)
	if err != nil {
		return nil, err
	}
	sc := scene{
		fonts:      r.fonts,
		multiplier: m,
		textFor:    func(template.TextField) string { return name },
		contentFor: func(q template.QRField) string { return substitute(q.Content, name) },
	}
	return sc.compose(tpl)
}
