package imagepkg

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/youruser/certapp/internal/template"
)

// textPadding is the backing margin around a placeholder's glyph box at 1:1.
const textPadding = 10

var backingColor = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xb3}

// scene carries everything one compose pass needs. A fresh surface is
// allocated per pass and nothing survives it.
type scene struct {
	fonts      *FontRegistry
	multiplier int

	// textFor picks what a placeholder shows: the substituted name when
	// rendering, the placeholder's own text when previewing.
	textFor func(template.TextField) string

	// contentFor expands a stamp's content pattern.
	contentFor func(template.QRField) string

	// fill is the surface colour under the background.
	fill color.NRGBA
	deco *decoration
}

func (s scene) compose(tpl template.Template) (*image.NRGBA, error) {
	w, h := tpl.Size()
	m := s.multiplier
	canvas := imaging.New(w*m, h*m, s.fill)

	for _, n := range tpl.Nodes() {
		switch node := n.(type) {
		case template.BackgroundNode:
			bg := node.Background.Image()
			if m != 1 {
				bg = imaging.Resize(bg, w*m, h*m, imaging.Lanczos)
			}
			canvas = imaging.Paste(canvas, bg, image.Pt(0, 0))
		case template.TextNode:
			if err := s.drawText(canvas, node.Field); err != nil {
				return nil, err
			}
		case template.QRNode:
			var err error
			canvas, err = s.drawQR(canvas, node.Stamp)
			if err != nil {
				return nil, err
			}
		}
	}
	return canvas, nil
}

// drawText draws the placeholder text centred on its position.
func (s scene) drawText(dst *image.NRGBA, f template.TextField) error {
	face, err := s.fonts.Face(f.FontFamily, float64(f.FontSize*s.multiplier))
	if err != nil {
		return err
	}
	defer face.Close()

	text := s.textFor(f)
	dot, box := layoutText(face, f, text, s.multiplier)
	if !f.HideBacking {
		fillRect(dst, box.Inset(-textPadding*s.multiplier), backingColor)
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(f.FontColor.NRGBA()),
		Face: face,
		Dot:  dot,
	}
	d.DrawString(text)
	if s.deco != nil {
		s.deco.frame(dst, f.ID, box)
	}
	return nil
}

// layoutText centres text on the field position: the returned dot is the
// baseline origin and box is the glyph box (advance x ascent+descent).
func layoutText(face font.Face, f template.TextField, text string, multiplier int) (fixed.Point26_6, image.Rectangle) {
	m := float64(multiplier)
	advance := font.MeasureString(face, text)
	metrics := face.Metrics()
	boxHeight := metrics.Ascent + metrics.Descent

	left := toFixed(f.Position.X*m) - advance/2
	top := toFixed(f.Position.Y*m) - boxHeight/2
	box := image.Rect(left.Floor(), top.Floor(), (left + advance).Ceil(), (top + boxHeight).Ceil())
	return fixed.Point26_6{X: left, Y: top + metrics.Ascent}, box
}

func measure(fonts *FontRegistry, f template.TextField, text string, multiplier int) (image.Rectangle, error) {
	face, err := fonts.Face(f.FontFamily, float64(f.FontSize*multiplier))
	if err != nil {
		return image.Rectangle{}, err
	}
	defer face.Close()
	_, box := layoutText(face, f, text, multiplier)
	return box, nil
}

func (s scene) drawQR(dst *image.NRGBA, q template.QRField) (*image.NRGBA, error) {
	size := q.Size * s.multiplier
	code, err := GenerateQRImage(s.contentFor(q), size)
	if err != nil {
		return nil, err
	}
	m := float64(s.multiplier)
	x := int(math.Round(q.Position.X*m)) - size/2
	y := int(math.Round(q.Position.Y*m)) - size/2
	return imaging.Paste(dst, code, image.Pt(x, y)), nil
}

func substitute(pattern, name string) string {
	return strings.ReplaceAll(pattern, template.NamePattern, name)
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}

func fillRect(dst draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Over)
}

func strokeRect(dst draw.Image, r image.Rectangle, c color.Color, width int) {
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width), c)
	fillRect(dst, image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y), c)
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y), c)
	fillRect(dst, image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y), c)
}
