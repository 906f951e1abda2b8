package archive

import (
	"context"
	"path/filepath"

	"github.com/youruser/certapp/internal/util"
)

// Saver delivers a finished archive to the user.
type Saver interface {
	Save(ctx context.Context, filename string, data []byte) error
}

type SaverFunc func(ctx context.Context, filename string, data []byte) error

func (f SaverFunc) Save(ctx context.Context, filename string, data []byte) error {
	return f(ctx, filename, data)
}

// DirSaver writes archives into Dir.
type DirSaver struct {
	Dir string
}

func (d DirSaver) Save(ctx context.Context, filename string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return util.WriteFile(filepath.Join(d.Dir, filepath.Base(filename)), data)
}
