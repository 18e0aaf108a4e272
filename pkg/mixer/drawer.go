// Package mixer pushes frames to a display panel.
package mixer

import (
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/inhies/go-bytesize"
	"go.uber.org/zap"

	"ndpanel/pkg/proto"
)

func NewDrawer(dst proto.Control, opts ...Option) *Drawer {
	d := &Drawer{
		dev:    dst,
		eff:    EffectFull(),
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(d)
	}

	d.logger = d.logger.With(zap.String("via", "mixer"), zap.String("effect", d.eff.Name()))
	return d
}

type Drawer struct {
	mu     sync.Mutex
	dev    proto.Control
	eff    Effect
	center bool
	logger *zap.Logger
	prev   *image.NRGBA
}

// Canvas draws img, shrinking it to fit the panel when needed.
func (d *Drawer) Canvas(img image.Image) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	panel := d.dev.Size()
	next := imaging.Clone(img)
	if s := next.Bounds().Size(); s.X > panel.X || s.Y > panel.Y {
		next = imaging.Fit(next, panel.X, panel.Y, imaging.NearestNeighbor)
	}

	var at image.Point
	if d.center {
		at = panel.Sub(next.Bounds().Size()).Div(2)
	}

	var prev Image
	if d.prev != nil {
		prev = d.prev
	}
	wc, err := d.eff.Process(prev, next)
	if err != nil {
		return err
	}

	var first error
	var writes, sent int
	for w := range wc {
		if first != nil {
			continue
		}
		p := at.Add(w.At)
		if err := d.dev.DrawBitmap(uint16(p.X), uint16(p.Y), w.Img); err != nil {
			first = err
			continue
		}
		writes++
		sent += w.Img.Bounds().Dx() * w.Img.Bounds().Dy() * 2
	}

	if first != nil {
		d.prev = nil
		return first
	}

	d.prev = next
	if writes > 0 {
		d.logger.With(zap.Int("writes", writes), zap.String("sent", bytesize.New(float64(sent)).String())).Debug("drawn")
	}
	return nil
}

// Reset forgets the panel content so the next frame is drawn in full.
func (d *Drawer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prev = nil
}
