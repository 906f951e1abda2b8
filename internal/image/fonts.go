package imagepkg

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/youruser/certapp/internal/template"
)

var ErrUnknownFont = errors.New("unknown font family")

// FontRegistry maps font family names to parsed OpenType fonts. The built-in
// template.DefaultFontFamily is backed by the embedded Go Regular font.
type FontRegistry struct {
	mu    sync.RWMutex
	fonts map[string]*opentype.Font
}

func NewFontRegistry() (*FontRegistry, error) {
	r := &FontRegistry{fonts: make(map[string]*opentype.Font)}
	if err := r.Register(template.DefaultFontFamily, goregular.TTF); err != nil {
		return nil, err
	}
	return r, nil
}

// Register parses ttf and makes it available under family, replacing any
// previous font with that name.
func (r *FontRegistry) Register(family string, ttf []byte) error {
	if family == "" {
		return fmt.Errorf("register font: empty family name")
	}
	parsed, err := opentype.Parse(ttf)
	if err != nil {
		return fmt.Errorf("parse font %q: %w", family, err)
	}
	r.mu.Lock()
	r.fonts[family] = parsed
	r.mu.Unlock()
	return nil
}

func (r *FontRegistry) RegisterFile(family, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %q: %w", path, err)
	}
	return r.Register(family, data)
}

func (r *FontRegistry) Has(family string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.fonts[family]
	return ok
}

func (r *FontRegistry) Families() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.fonts))
	for name := range r.fonts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Face returns a new face sized in pixels. The caller owns it and must Close it.
func (r *FontRegistry) Face(family string, px float64) (font.Face, error) {
	r.mu.RLock()
	parsed, ok := r.fonts[family]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFont, family)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    px,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face at %.1fpx: %w", px, err)
	}
	return face, nil
}
