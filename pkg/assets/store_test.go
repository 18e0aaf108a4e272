package assets

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodeBMP(t *testing.T, img image.Image) []byte {
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, img))
	return buf.Bytes()
}

func TestStoreLoadFromFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "lock/lock1.bmp", encodeBMP(t, solid(8, 8, color.White)), 0644))

	s := NewStore(fs)
	img, err := s.Load(context.Background(), "lock/lock1.bmp")
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.True(t, s.Cached("lock/lock1.bmp"))

	// cached: deleting the file does not matter any more
	require.NoError(t, fs.Remove("lock/lock1.bmp"))
	img2, err := s.Load(context.Background(), "lock/lock1.bmp")
	require.NoError(t, err)
	assert.Same(t, img, img2)
}

func TestStoreMissing(t *testing.T) {
	s := NewStore(afero.NewMemMapFs())
	_, err := s.Load(context.Background(), "nope.bmp")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, s.Cached("nope.bmp"))
}

func TestStoreConcurrentLoadsShareResult(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "a.bmp", encodeBMP(t, solid(2, 2, color.Black)), 0644))
	s := NewStore(fs)

	var wg sync.WaitGroup
	imgs := make([]image.Image, 8)
	for i := range imgs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			img, err := s.Load(context.Background(), "a.bmp")
			assert.NoError(t, err)
			imgs[i] = img
		}(i)
	}
	wg.Wait()

	for _, img := range imgs[1:] {
		assert.Same(t, imgs[0], img)
	}
}

func TestStoreHTTPFallback(t *testing.T) {
	body := encodeBMP(t, solid(3, 4, color.White))
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path != "/charge/charge.bmp" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	s := NewStore(fs, WithBaseURL(srv.URL), WithWriteBack())

	img, err := s.Load(context.Background(), "charge/charge.bmp")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 4), img.Bounds())

	saved, err := afero.Exists(fs, "charge/charge.bmp")
	require.NoError(t, err)
	assert.True(t, saved)

	_, err = s.Load(context.Background(), "charge/missing.bmp")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestStoreCancelledContext(t *testing.T) {
	s := NewStore(afero.NewMemMapFs())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Load(ctx, "x.bmp")
	assert.Error(t, err)
}

func TestSeedAndPreload(t *testing.T) {
	fs := afero.NewMemMapFs()
	keys := []Key{"a/one.bmp", "a/two.bmp", "b/three.bmp"}
	gen := func(Key) image.Image { return solid(4, 4, color.White) }

	n, err := Seed(fs, keys, gen, false)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = Seed(fs, keys, gen, false)
	require.NoError(t, err)
	assert.Zero(t, n, "existing assets are kept")

	s := NewStore(fs)
	require.NoError(t, s.Preload(context.Background(), keys, false))
	for _, k := range keys {
		assert.True(t, s.Cached(k))
	}
}

func TestExportDir(t *testing.T) {
	e, err := NewExportDir("")
	require.NoError(t, err)
	assert.False(t, e.Enabled())
	_, err = e.Write(".png", []byte("x"))
	assert.Error(t, err)

	dir := t.TempDir()
	e, err = NewExportDir(dir)
	require.NoError(t, err)
	name, err := e.Write(".png", []byte("x"))
	require.NoError(t, err)
	assert.Contains(t, name, ".png")

	_, err = NewExportDir(dir + "/missing")
	assert.Error(t, err)
}
