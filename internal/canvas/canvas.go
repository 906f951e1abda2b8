// Package canvas adapts editing gestures (image drop, add field, click, drag,
// resize) to template session mutations and renders the live preview.
package canvas

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync"

	imagepkg "github.com/youruser/certapp/internal/image"
	"github.com/youruser/certapp/internal/template"
)

// hitPadding matches the padding of the on-screen text frame.
const hitPadding = 10

// Canvas is one editing surface. The wrapped session is the single source of
// truth; the canvas only adds control-panel state and selection.
type Canvas struct {
	session  *template.Session
	renderer *imagepkg.Renderer

	mu       sync.Mutex
	style    template.Style
	selected string
}

func New(session *template.Session, renderer *imagepkg.Renderer) *Canvas {
	return &Canvas{
		session:  session,
		renderer: renderer,
		style:    template.DefaultStyle(),
	}
}

func (c *Canvas) Session() *template.Session { return c.session }

// Snapshot returns the current template, including the latest drag/resize.
func (c *Canvas) Snapshot() template.Template { return c.session.Snapshot() }

func (c *Canvas) Size() (width, height int) { return c.session.Snapshot().Size() }

// Freeze locks the surface for the duration of a batch.
func (c *Canvas) Freeze() (release func(), err error) { return c.session.Freeze() }

func (c *Canvas) Style() template.Style {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.style
}

func (c *Canvas) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// DropImage installs a new background. Existing fields are cleared, so the
// selection is too.
func (c *Canvas) DropImage(data []byte) (width, height int, err error) {
	width, height, err = c.session.SetBackground(data)
	if err != nil {
		return 0, 0, err
	}
	c.mu.Lock()
	c.selected = ""
	c.mu.Unlock()
	return width, height, nil
}

// AddNameField adds a placeholder with the current control-panel style and
// selects it.
func (c *Canvas) AddNameField() (string, error) {
	return c.AddNameFieldWith(c.Style())
}

// AddNameFieldWith adds a placeholder with style. On success style becomes the
// control-panel style and the new field is selected; on failure nothing changes.
func (c *Canvas) AddNameFieldWith(style template.Style) (string, error) {
	id, err := c.session.AddTextField(style)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.style.FontSize = style.FontSize
	c.style.FontColor = style.FontColor
	c.selected = id
	c.mu.Unlock()
	return id, nil
}

func (c *Canvas) AddQRStamp(spec template.QRSpec) (string, error) {
	id, err := c.session.AddQRField(spec)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.selected = id
	c.mu.Unlock()
	return id, nil
}

// SetFontSize updates the control panel and the selected placeholder, if any.
func (c *Canvas) SetFontSize(size int) error {
	next := c.Style()
	next.FontSize = size
	if err := next.Validate(); err != nil {
		return err
	}
	if id := c.Selected(); id != "" {
		if _, ok := c.Snapshot().Field(id); ok {
			if err := c.session.UpdateField(id, template.Patch{FontSize: &size}); err != nil {
				return err
			}
		}
	}
	c.mu.Lock()
	c.style.FontSize = size
	c.mu.Unlock()
	return nil
}

// SetFontColor updates the control panel and the selected placeholder, if any.
func (c *Canvas) SetFontColor(hex string) error {
	color, err := template.ParseRGB(hex)
	if err != nil {
		return err
	}
	if id := c.Selected(); id != "" {
		if _, ok := c.Snapshot().Field(id); ok {
			if err := c.session.UpdateField(id, template.Patch{FontColor: &color}); err != nil {
				return err
			}
		}
	}
	c.mu.Lock()
	c.style.FontColor = color
	c.mu.Unlock()
	return nil
}

// Select marks id as the active field. An empty id clears the selection.
func (c *Canvas) Select(id string) error {
	if id != "" && !c.exists(id) {
		return fmt.Errorf("%w: %s", template.ErrFieldNotFound, id)
	}
	c.mu.Lock()
	c.selected = id
	c.mu.Unlock()
	return nil
}

// Click selects the topmost field under (x, y), or clears the selection when
// the point only touches the background.
func (c *Canvas) Click(x, y float64) (string, error) {
	id, _, err := c.HitTest(x, y)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.selected = id
	c.mu.Unlock()
	return id, nil
}

// HitTest returns the topmost field containing (x, y). The background is
// never a hit target.
func (c *Canvas) HitTest(x, y float64) (string, bool, error) {
	tpl := c.Snapshot()
	pt := image.Pt(int(math.Floor(x)), int(math.Floor(y)))

	for i := len(tpl.Stamps) - 1; i >= 0; i-- {
		q := tpl.Stamps[i]
		half := q.Size / 2
		cx, cy := int(math.Round(q.Position.X)), int(math.Round(q.Position.Y))
		if pt.In(image.Rect(cx-half, cy-half, cx+half, cy+half)) {
			return q.ID, true, nil
		}
	}

	bounds, err := c.renderer.TextBounds(tpl)
	if err != nil {
		return "", false, err
	}
	for i := len(tpl.Placeholders) - 1; i >= 0; i-- {
		f := tpl.Placeholders[i]
		if pt.In(bounds[f.ID].Inset(-hitPadding)) {
			return f.ID, true, nil
		}
	}
	return "", false, nil
}

// Drag moves a field by (dx, dy).
func (c *Canvas) Drag(id string, dx, dy float64) error {
	p, err := c.Position(id)
	if err != nil {
		return err
	}
	return c.session.MoveField(id, p.X+dx, p.Y+dy)
}

func (c *Canvas) MoveTo(id string, x, y float64) error {
	return c.session.MoveField(id, x, y)
}

// Resize scales a field. Text fields scale their font size and stamps their
// edge length, both clamped to the allowed range.
func (c *Canvas) Resize(id string, scale float64) error {
	return c.session.UpdateField(id, template.Patch{Scale: &scale})
}

// Update selects id and applies p as one edit. The control panel picks up the
// patched font size and colour only once the edit is committed.
func (c *Canvas) Update(id string, p template.Patch) error {
	if err := c.session.UpdateField(id, p); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if p.FontSize != nil {
		c.style.FontSize = *p.FontSize
	}
	if p.FontColor != nil {
		c.style.FontColor = *p.FontColor
	}
	c.selected = id
	return nil
}

func (c *Canvas) Remove(id string) error {
	if err := c.session.RemoveField(id); err != nil {
		return err
	}
	c.mu.Lock()
	if c.selected == id {
		c.selected = ""
	}
	c.mu.Unlock()
	return nil
}

// Preview renders the editing view with the current selection decorated.
func (c *Canvas) Preview(ctx context.Context) ([]byte, error) {
	return c.renderer.Preview(ctx, c.Snapshot(), c.Selected())
}

func (c *Canvas) exists(id string) bool {
	_, err := c.Position(id)
	return err == nil
}

// Position returns the centre of a placeholder or stamp.
func (c *Canvas) Position(id string) (template.Point, error) {
	tpl := c.Snapshot()
	if f, ok := tpl.Field(id); ok {
		return f.Position, nil
	}
	for _, q := range tpl.Stamps {
		if q.ID == id {
			return q.Position, nil
		}
	}
	return template.Point{}, fmt.Errorf("%w: %s", template.ErrFieldNotFound, id)
}
