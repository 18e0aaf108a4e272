// Package virtual is an in-memory display panel. It keeps the pixels it was
// sent so frames can be inspected without hardware.
package virtual

import (
	"image"
	"image/draw"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"ndpanel/pkg/proto"
)

var ErrOff = errors.New("panel is off")

func New(width, height int, logger *zap.Logger) *Panel {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Panel{
		l:     logger.With(zap.String("via", "virtual")),
		size:  image.Pt(width, height),
		light: 100,
	}
	p.canvas = image.NewNRGBA(image.Rect(0, 0, width, height))
	return p
}

type Panel struct {
	mu     sync.Mutex
	l      *zap.Logger
	on     bool
	light  uint8
	size   image.Point
	canvas *image.NRGBA
	draws  int
}

var _ proto.Control = (*Panel)(nil)

func (p *Panel) Startup() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.on = true
	p.l.Info("startup")
	return nil
}

func (p *Panel) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.on = false
	p.l.Info("shutdown")
	return nil
}

func (p *Panel) SetLight(light uint8) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.light = light
	p.l.With(zap.Uint8("light", light)).Info("set-light")
	return nil
}

// SetRotate swaps the canvas axes for landscape. Existing pixels are
// rotated with it.
func (p *Panel) SetRotate(landscape bool, invert bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	w, h := p.size.X, p.size.Y
	if landscape != (w > h) {
		p.size = image.Pt(h, w)
		p.canvas = imaging.Rotate90(p.canvas)
	}
	if invert {
		p.canvas = imaging.Rotate180(p.canvas)
	}
	p.l.With(zap.Bool("landscape", landscape), zap.Bool("invert", invert)).Info("set-rotate")
	return nil
}

func (p *Panel) Size() image.Point {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}

func (p *Panel) DrawBitmap(posX uint16, posY uint16, img image.Image) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.on {
		return ErrOff
	}

	b := img.Bounds()
	at := image.Pt(int(posX), int(posY))
	dst := image.Rectangle{Min: at, Max: at.Add(b.Size())}
	if !dst.In(p.canvas.Bounds()) {
		return errors.Errorf("bitmap %v at %v outside %v", b.Size(), at, p.size)
	}

	draw.Draw(p.canvas, dst, img, b.Min, draw.Src)
	p.draws++

	p.l.With(
		zap.Uint16("x", posX),
		zap.Uint16("y", posY),
		zap.Int("w", b.Dx()),
		zap.Int("h", b.Dy()),
	).Debug("draw-bitmap")
	return nil
}

// Image returns a copy of the panel contents.
func (p *Panel) Image() *image.NRGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	return imaging.Clone(p.canvas)
}

// Draws counts the bitmaps drawn so far.
func (p *Panel) Draws() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draws
}

func (p *Panel) On() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.on
}
