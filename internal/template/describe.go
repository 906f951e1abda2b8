package template

import (
	"fmt"
	"strconv"
)

// Description is the serializable form of a Template. Placeholders and stamps
// keep their insertion order so a described template maps back 1:1.
type Description struct {
	Width        int         `json:"width"`
	Height       int         `json:"height"`
	Format       string      `json:"format,omitempty"`
	Background   []byte      `json:"background,omitempty"`
	Placeholders []TextField `json:"placeholders"`
	Stamps       []QRField   `json:"stamps,omitempty"`
}

// Describe captures t. The encoded background is included only when
// withBackground is set.
func (t Template) Describe(withBackground bool) Description {
	c := t.clone()
	w, h := c.Size()
	d := Description{
		Width:        w,
		Height:       h,
		Placeholders: c.Placeholders,
		Stamps:       c.Stamps,
	}
	if d.Placeholders == nil {
		d.Placeholders = []TextField{}
	}
	if c.Background != nil {
		d.Format = c.Background.Format
		if withBackground {
			d.Background = c.Background.Bytes()
		}
	}
	return d
}

// FromDescription rebuilds a Template, decoding the background and filling
// fixed attributes that older descriptions may omit.
func FromDescription(d Description) (Template, error) {
	var t Template
	if len(d.Background) > 0 {
		bg, err := NewBackground(d.Background)
		if err != nil {
			return Template{}, err
		}
		if (d.Width != 0 && d.Width != bg.Width) || (d.Height != 0 && d.Height != bg.Height) {
			return Template{}, fmt.Errorf("%w: %dx%d vs %dx%d", ErrSizeMismatch, d.Width, d.Height, bg.Width, bg.Height)
		}
		t.Background = bg
	} else if len(d.Placeholders) > 0 || len(d.Stamps) > 0 {
		return Template{}, ErrNoBackground
	}

	t.Placeholders = make([]TextField, 0, len(d.Placeholders))
	for _, f := range d.Placeholders {
		if f.FontSize < MinFontSize || f.FontSize > MaxFontSize {
			return Template{}, fmt.Errorf("%w: font size %d outside %d..%d", ErrInvalidStyle, f.FontSize, MinFontSize, MaxFontSize)
		}
		if f.FontFamily == "" {
			f.FontFamily = DefaultFontFamily
		}
		if f.Text == "" {
			f.Text = DefaultText
		}
		f.TextAlign = AlignCenter
		f.OriginX, f.OriginY = OriginCenter, OriginCenter
		t.Placeholders = append(t.Placeholders, f)
	}
	for _, q := range d.Stamps {
		if err := (QRSpec{Size: q.Size, Content: q.Content}).Validate(); err != nil {
			return Template{}, err
		}
		t.Stamps = append(t.Stamps, q)
	}
	assignMissingIDs(&t)
	return t, nil
}

func assignMissingIDs(t *Template) {
	seq := maxSeq(*t)
	for i := range t.Placeholders {
		if t.Placeholders[i].ID == "" {
			seq++
			t.Placeholders[i].ID = "f" + strconv.Itoa(seq)
		}
	}
	for i := range t.Stamps {
		if t.Stamps[i].ID == "" {
			seq++
			t.Stamps[i].ID = "q" + strconv.Itoa(seq)
		}
	}
}
