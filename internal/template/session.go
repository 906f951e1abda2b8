package template

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
)

// Session is the live editing state of one template. It is safe for
// concurrent use.
type Session struct {
	mu     sync.RWMutex
	tpl    Template
	seq    int
	frozen bool
}

func NewSession() *Session {
	return &Session{}
}

// Snapshot returns a deep copy of the current template. Later edits to the
// session never show up in a snapshot already taken.
func (s *Session) Snapshot() Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tpl.clone()
}

// Mutate applies fn to a copy of the template and commits the copy only if fn
// succeeds. It fails with ErrBusy while the session is frozen.
func (s *Session) Mutate(fn func(*Template) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return ErrBusy
	}
	next := s.tpl.clone()
	if err := fn(&next); err != nil {
		return err
	}
	s.tpl = next
	return nil
}

// Freeze blocks every edit until release is called. Only one freeze may be
// held at a time.
func (s *Session) Freeze() (release func(), err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return nil, ErrBusy
	}
	s.frozen = true
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.frozen = false
			s.mu.Unlock()
		})
	}, nil
}

func (s *Session) Frozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frozen
}

// SetBackground decodes data and installs it as the background. The canvas
// takes the image's natural size and any existing placeholders and stamps are
// cleared. On failure the session is left unchanged.
func (s *Session) SetBackground(data []byte) (width, height int, err error) {
	bg, err := NewBackground(data)
	if err != nil {
		return 0, 0, err
	}
	err = s.Mutate(func(t *Template) error {
		*t = Template{Background: bg}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return bg.Width, bg.Height, nil
}

// AddTextField appends a placeholder centred on the canvas with the default
// text. It is rejected with ErrNoBackground until a background is set.
func (s *Session) AddTextField(style Style) (string, error) {
	if style.FontFamily == "" {
		style.FontFamily = DefaultFontFamily
	}
	if err := style.Validate(); err != nil {
		return "", err
	}
	var id string
	err := s.Mutate(func(t *Template) error {
		if t.Background == nil {
			return ErrNoBackground
		}
		w, h := t.Size()
		id = s.nextID("f")
		t.Placeholders = append(t.Placeholders, TextField{
			ID:         id,
			Position:   Point{X: float64(w) / 2, Y: float64(h) / 2},
			Text:       DefaultText,
			FontSize:   style.FontSize,
			FontColor:  style.FontColor,
			FontFamily: style.FontFamily,
			TextAlign:  AlignCenter,
			OriginX:    OriginCenter,
			OriginY:    OriginCenter,
		})
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// AddQRField appends a QR stamp centred on the canvas.
func (s *Session) AddQRField(spec QRSpec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}
	var id string
	err := s.Mutate(func(t *Template) error {
		if t.Background == nil {
			return ErrNoBackground
		}
		w, h := t.Size()
		id = s.nextID("q")
		t.Stamps = append(t.Stamps, QRField{
			ID:       id,
			Position: Point{X: float64(w) / 2, Y: float64(h) / 2},
			Size:     spec.Size,
			Content:  spec.Content,
		})
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Patch is a partial update of a placeholder or stamp. Nil members are left
// unchanged. Scale multiplies the font size of a placeholder or the edge of a
// stamp, clamped to the allowed range. Text, FontSize, FontColor and
// HideBacking only apply to placeholders.
type Patch struct {
	X           *float64
	Y           *float64
	Scale       *float64
	Text        *string
	FontSize    *int
	FontColor   *RGB
	HideBacking *bool
}

func (p Patch) validate() error {
	if p.FontSize != nil && (*p.FontSize < MinFontSize || *p.FontSize > MaxFontSize) {
		return fmt.Errorf("%w: font size %d outside %d..%d", ErrInvalidStyle, *p.FontSize, MinFontSize, MaxFontSize)
	}
	if p.Scale != nil && (*p.Scale <= 0 || math.IsNaN(*p.Scale) || math.IsInf(*p.Scale, 0)) {
		return fmt.Errorf("%w: scale %v", ErrInvalidStyle, *p.Scale)
	}
	return nil
}

func (p Patch) textOnly() bool {
	return p.Text != nil || p.FontSize != nil || p.FontColor != nil || p.HideBacking != nil
}

// MoveField sets the centre of a placeholder or stamp.
func (s *Session) MoveField(id string, x, y float64) error {
	return s.UpdateField(id, Patch{X: &x, Y: &y})
}

// UpdateField applies every member of p in a single edit. Either all of it is
// committed or, on error, none of it.
func (s *Session) UpdateField(id string, p Patch) error {
	if err := p.validate(); err != nil {
		return err
	}
	return s.Mutate(func(t *Template) error {
		if f := t.field(id); f != nil {
			if p.X != nil {
				f.Position.X = *p.X
			}
			if p.Y != nil {
				f.Position.Y = *p.Y
			}
			if p.Scale != nil {
				f.FontSize = scaled(f.FontSize, *p.Scale, MinFontSize, MaxFontSize)
			}
			if p.Text != nil {
				f.Text = *p.Text
			}
			if p.FontSize != nil {
				f.FontSize = *p.FontSize
			}
			if p.FontColor != nil {
				f.FontColor = *p.FontColor
			}
			if p.HideBacking != nil {
				f.HideBacking = *p.HideBacking
			}
			return nil
		}
		if q := t.stamp(id); q != nil {
			if p.textOnly() {
				return fmt.Errorf("%w: %s is a QR stamp", ErrInvalidStyle, id)
			}
			if p.X != nil {
				q.Position.X = *p.X
			}
			if p.Y != nil {
				q.Position.Y = *p.Y
			}
			if p.Scale != nil {
				q.Size = scaled(q.Size, *p.Scale, MinQRSize, MaxQRSize)
			}
			return nil
		}
		return fmt.Errorf("%w: %s", ErrFieldNotFound, id)
	})
}

func scaled(v int, scale float64, lo, hi int) int {
	n := int(math.Round(float64(v) * scale))
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// RemoveField deletes a placeholder or stamp, keeping the order of the rest.
func (s *Session) RemoveField(id string) error {
	return s.Mutate(func(t *Template) error {
		for i := range t.Placeholders {
			if t.Placeholders[i].ID == id {
				t.Placeholders = append(t.Placeholders[:i], t.Placeholders[i+1:]...)
				return nil
			}
		}
		for i := range t.Stamps {
			if t.Stamps[i].ID == id {
				t.Stamps = append(t.Stamps[:i], t.Stamps[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrFieldNotFound, id)
	})
}

// Load replaces the session state with a previously described template.
func (s *Session) Load(d Description) error {
	tpl, err := FromDescription(d)
	if err != nil {
		return err
	}
	return s.Mutate(func(t *Template) error {
		*t = tpl
		s.seq = maxSeq(tpl)
		return nil
	})
}

// nextID must be called with s.mu held.
func (s *Session) nextID(prefix string) string {
	s.seq++
	return prefix + strconv.Itoa(s.seq)
}

func maxSeq(t Template) int {
	n := 0
	ids := make([]string, 0, len(t.Placeholders)+len(t.Stamps))
	for _, f := range t.Placeholders {
		ids = append(ids, f.ID)
	}
	for _, q := range t.Stamps {
		ids = append(ids, q.ID)
	}
	for _, id := range ids {
		v, err := strconv.Atoi(strings.TrimLeft(id, "fq"))
		if err == nil && v > n {
			n = v
		}
	}
	return n
}
