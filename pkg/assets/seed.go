package assets

import (
	"bytes"
	"image"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"golang.org/x/image/bmp"
)

// Seed writes a generated BMP for every key missing from fs and returns how
// many were written.
func Seed(fs afero.Fs, keys []Key, gen func(Key) image.Image, bar bool) (int, error) {
	var pb *progressbar.ProgressBar
	if bar {
		pb = progressbar.Default(int64(len(keys)), "seeding assets")
	}

	written := 0
	for _, k := range keys {
		if pb != nil {
			_ = pb.Add(1)
		}

		if exists, err := afero.Exists(fs, string(k)); err != nil {
			return written, err
		} else if exists {
			continue
		}

		var buf bytes.Buffer
		if err := bmp.Encode(&buf, gen(k)); err != nil {
			return written, errors.Wrapf(err, "encode %s", k)
		}
		if err := fs.MkdirAll(k.Dir(), 0755); err != nil {
			return written, err
		}
		if err := afero.WriteFile(fs, string(k), buf.Bytes(), 0644); err != nil {
			return written, err
		}
		written++
	}

	return written, nil
}
