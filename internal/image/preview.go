package imagepkg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/youruser/certapp/internal/template"
)

const handleSize = 10

var (
	previewFill    = color.NRGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff}
	selectionColor = color.NRGBA{R: 0x42, G: 0x87, B: 0xf5, A: 0xff}
)

// decoration draws editing-only affordances. None of it reaches Render output.
type decoration struct {
	selected string
}

func (d *decoration) frame(dst *image.NRGBA, id string, box image.Rectangle) {
	if id == "" || id != d.selected {
		return
	}
	r := box.Inset(-textPadding)
	strokeRect(dst, r, selectionColor, 1)
	for _, p := range []image.Point{r.Min, {X: r.Max.X, Y: r.Min.Y}, {X: r.Min.X, Y: r.Max.Y}, r.Max} {
		fillRect(dst, image.Rect(p.X-handleSize/2, p.Y-handleSize/2, p.X+handleSize/2, p.Y+handleSize/2), selectionColor)
	}
}

// Preview renders the editing view of tpl at 1:1. Placeholders show their own
// text and the selected field gets a frame with corner handles. A template without background previews as a blank canvas.
func (r *Renderer) Preview(ctx context.Context, tpl template.Template, selected string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sc := scene{
		fonts:      r.fonts,
		multiplier: 1,
		textFor:    func(f template.TextField) string { return f.Text },
		contentFor: func(q template.QRField) string { return substitute(q.Content, template.DefaultText) },
		fill:       previewFill,
		deco:       &decoration{selected: selected},
	}
	img, err := sc.compose(tpl)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

// TextBounds reports the glyph box each placeholder occupies at 1:1, keyed
// by field id. The canvas uses it for hit testing.
func (r *Renderer) TextBounds(tpl template.Template) (map[string]image.Rectangle, error) {
	out := make(map[string]image.Rectangle, len(tpl.Placeholders))
	for _, f := range tpl.Placeholders {
		box, err := measure(r.fonts, f, f.Text, 1)
		if err != nil {
			return nil, err
		}
		out[f.ID] = box
	}
	return out, nil
}
