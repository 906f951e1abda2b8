package template

import "errors"

var (
	ErrNoBackground   = errors.New("no background image set")
	ErrEmptyTemplate  = errors.New("template has no name placeholders")
	ErrFieldNotFound  = errors.New("field not found")
	ErrInvalidStyle   = errors.New("invalid field style")
	ErrInvalidColor   = errors.New("invalid color")
	ErrBusy           = errors.New("session is locked while certificates are generating")
	ErrSizeMismatch   = errors.New("description size does not match background")
	ErrEmptyImageData = errors.New("empty image data")
)

// DecodeError reports background bytes that could not be decoded into a raster.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode background: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }
