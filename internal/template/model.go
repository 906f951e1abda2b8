package template

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultWidth      = 800
	DefaultHeight     = 500
	DefaultText       = "Full Name"
	DefaultFontSize   = 48
	DefaultFontFamily = "Go Regular"
	MinFontSize       = 8
	MaxFontSize       = 200
	MinQRSize         = 32
	MaxQRSize         = 1024

	NamePattern = "{name}"
)

type Origin string

const OriginCenter Origin = "center"

type Align string

const AlignCenter Align = "center"

type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// TextField is one name placeholder. Position is the centre of the glyph box.
// The text sits on a translucent white backing unless HideBacking is set.
type TextField struct {
	ID          string `json:"id"`
	Position    Point  `json:"position"`
	Text        string `json:"text"`
	FontSize    int    `json:"font_size"`
	FontColor   RGB    `json:"font_color"`
	FontFamily  string `json:"font_family"`
	TextAlign   Align  `json:"text_align"`
	OriginX     Origin `json:"origin_x"`
	OriginY     Origin `json:"origin_y"`
	HideBacking bool   `json:"hide_backing,omitempty"`
}

// QRField is a square QR code stamp centred on Position. Content may contain
// NamePattern, which is replaced by the rendered name.
type QRField struct {
	ID       string `json:"id"`
	Position Point  `json:"position"`
	Size     int    `json:"size"`
	Content  string `json:"content"`
}

// Style is the user-selected font configuration applied to new or edited fields.
type Style struct {
	FontSize   int    `json:"font_size" validate:"min=8,max=200"`
	FontColor  RGB    `json:"font_color"`
	FontFamily string `json:"font_family"`
}

func DefaultStyle() Style {
	return Style{FontSize: DefaultFontSize, FontColor: Black, FontFamily: DefaultFontFamily}
}

// QRSpec describes a stamp to be added. The size bounds are MinQRSize and
// MaxQRSize.
type QRSpec struct {
	Size    int    `json:"size" validate:"min=32,max=1024"`
	Content string `json:"content" validate:"required"`
}

var validate = validator.New()

func (s Style) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStyle, err)
	}
	return nil
}

func (q QRSpec) Validate() error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStyle, err)
	}
	return nil
}

// Template is a complete, renderable certificate description.
type Template struct {
	Background   *Background
	Placeholders []TextField
	Stamps       []QRField
}

// Size reports the canvas dimensions: the background's natural size, or the
// blank default before a background is set.
func (t Template) Size() (width, height int) {
	if t.Background == nil {
		return DefaultWidth, DefaultHeight
	}
	return t.Background.Width, t.Background.Height
}

// Validate reports whether the template can be rendered.
func (t Template) Validate() error {
	if t.Background == nil {
		return ErrNoBackground
	}
	if len(t.Placeholders) == 0 {
		return ErrEmptyTemplate
	}
	return nil
}

func (t Template) clone() Template {
	out := Template{Background: t.Background}
	if t.Placeholders != nil {
		out.Placeholders = append(make([]TextField, 0, len(t.Placeholders)), t.Placeholders...)
	}
	if t.Stamps != nil {
		out.Stamps = append(make([]QRField, 0, len(t.Stamps)), t.Stamps...)
	}
	return out
}

// Field returns the placeholder with the given id.
func (t Template) Field(id string) (TextField, bool) {
	for _, f := range t.Placeholders {
		if f.ID == id {
			return f, true
		}
	}
	return TextField{}, false
}

func (t *Template) field(id string) *TextField {
	for i := range t.Placeholders {
		if t.Placeholders[i].ID == id {
			return &t.Placeholders[i]
		}
	}
	return nil
}

func (t *Template) stamp(id string) *QRField {
	for i := range t.Stamps {
		if t.Stamps[i].ID == id {
			return &t.Stamps[i]
		}
	}
	return nil
}
