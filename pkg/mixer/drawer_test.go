package mixer

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	at   image.Point
	size image.Point
}

type recorder struct {
	size  image.Point
	calls []call
	fail  bool
}

func (r *recorder) Startup() error                { return nil }
func (r *recorder) Shutdown() error               { return nil }
func (r *recorder) SetLight(uint8) error          { return nil }
func (r *recorder) SetRotate(bool, bool) error    { return nil }
func (r *recorder) Size() image.Point             { return r.size }
func (r *recorder) DrawBitmap(x, y uint16, img image.Image) error {
	if r.fail {
		return errors.New("unplugged")
	}
	r.calls = append(r.calls, call{at: image.Pt(int(x), int(y)), size: img.Bounds().Size()})
	return nil
}

func TestFullEffect(t *testing.T) {
	rec := &recorder{size: image.Pt(100, 100)}
	d := NewDrawer(rec, WithCenter())

	require.NoError(t, d.Canvas(imaging.New(20, 40, color.White)))
	assert.Equal(t, []call{{at: image.Pt(40, 30), size: image.Pt(20, 40)}}, rec.calls)
}

func TestBlockEffectSendsChanges(t *testing.T) {
	rec := &recorder{size: image.Pt(64, 64)}
	d := NewDrawer(rec, WithEffect(EffectBlock(16)))

	frame := imaging.New(32, 20, color.Black)
	require.NoError(t, d.Canvas(frame))
	// 2 columns x 2 rows, the last row clipped to 4 pixels
	require.Len(t, rec.calls, 4)
	assert.Equal(t, call{at: image.Pt(16, 16), size: image.Pt(16, 4)}, rec.calls[3])

	rec.calls = nil
	require.NoError(t, d.Canvas(frame))
	assert.Empty(t, rec.calls)

	changed := imaging.Clone(frame)
	changed.Set(20, 3, color.White)
	require.NoError(t, d.Canvas(changed))
	assert.Equal(t, []call{{at: image.Pt(16, 0), size: image.Pt(16, 16)}}, rec.calls)

	rec.calls = nil
	d.Reset()
	require.NoError(t, d.Canvas(changed))
	assert.Len(t, rec.calls, 4)
}

func TestCanvasFitsPanel(t *testing.T) {
	rec := &recorder{size: image.Pt(10, 10)}
	d := NewDrawer(rec)
	require.NoError(t, d.Canvas(imaging.New(20, 40, color.White)))
	assert.Equal(t, []call{{at: image.Pt(0, 0), size: image.Pt(5, 10)}}, rec.calls)
}

func TestCanvasErrorForcesRedraw(t *testing.T) {
	rec := &recorder{size: image.Pt(32, 32), fail: true}
	d := NewDrawer(rec, WithEffect(EffectBlock(16)))

	frame := imaging.New(32, 32, color.Black)
	assert.Error(t, d.Canvas(frame))

	rec.fail = false
	require.NoError(t, d.Canvas(frame))
	assert.Len(t, rec.calls, 4)
}

func TestBlockInvalidSize(t *testing.T) {
	_, err := EffectBlock(0).Process(nil, imaging.New(1, 1, color.Black))
	assert.Error(t, err)
}
