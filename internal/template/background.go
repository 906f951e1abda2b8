package template

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
)

// Background is an uploaded raster at its natural resolution. It is decoded
// once, when constructed, and never modified afterwards, so snapshots share it.
type Background struct {
	data   []byte
	img    image.Image
	Width  int
	Height int
	Format string
}

// NewBackground decodes data fully before returning. Failures are reported as
// *DecodeError.
func NewBackground(data []byte) (*Background, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Err: ErrEmptyImageData}
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, &DecodeError{Err: ErrEmptyImageData}
	}
	own := make([]byte, len(data))
	copy(own, data)
	return &Background{
		data:   own,
		img:    img,
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: format,
	}, nil
}

// Image returns the decoded raster. Callers must treat it as read-only.
func (b *Background) Image() image.Image { return b.img }

// Bytes returns the original encoded upload. Callers must not modify it.
func (b *Background) Bytes() []byte { return b.data }
