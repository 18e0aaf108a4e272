package assets

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/spf13/afero"
)

// NewDirFs roots an afero filesystem at an existing directory.
func NewDirFs(path string) (afero.Fs, error) {
	fs := afero.NewOsFs()
	if exists, err := afero.DirExists(fs, path); err != nil {
		return nil, err
	} else if !exists {
		return nil, errors.Errorf("dir %s not exists", path)
	}
	return afero.NewBasePathFs(fs, path), nil
}

// NewExportDir returns a directory for dumping rendered frames. An empty dir
// disables exporting.
func NewExportDir(dir string) (*ExportDir, error) {
	e := &ExportDir{}

	if dir == "" {
		return e, nil
	}

	if fs, err := NewDirFs(dir); err != nil {
		return nil, fmt.Errorf("create export dir failed: %w", err)
	} else {
		e.fs = fs
	}

	return e, nil
}

type ExportDir struct {
	fs afero.Fs
}

func (e *ExportDir) Enabled() bool {
	return e.fs != nil
}

// Write stores bs under a fresh unique name with the given extension and
// returns the name.
func (e *ExportDir) Write(ext string, bs []byte) (string, error) {
	if e.fs == nil {
		return "", errors.New("export disabled")
	}
	name := xid.New().String() + ext
	return name, afero.WriteFile(e.fs, name, bs, 0644)
}
