package compositor

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Surface is a painting target for layers.
type Surface interface {
	Clear()
	DrawLayer(img image.Image, x, y, w, h int)
}

// NewImageSurface returns an in-memory surface. Scaling is nearest
// neighbour only, so integer enlargements are pixel exact.
func NewImageSurface(size image.Point, bg color.Color) *ImageSurface {
	s := &ImageSurface{size: size, bg: bg}
	s.Clear()
	return s
}

type ImageSurface struct {
	size image.Point
	bg   color.Color
	img  *image.NRGBA
}

func (s *ImageSurface) Clear() {
	s.img = imaging.New(s.size.X, s.size.Y, s.bg)
}

func (s *ImageSurface) DrawLayer(img image.Image, x, y, w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	b := img.Bounds()
	if b.Dx() != w || b.Dy() != h {
		img = imaging.Resize(img, w, h, imaging.NearestNeighbor)
	}
	s.img = imaging.Overlay(s.img, img, image.Pt(x, y), 1.0)
}

func (s *ImageSurface) Image() *image.NRGBA {
	return s.img
}

// Paint clears s and draws layers in order. imgs[i] is the bitmap of
// layers[i].
func Paint(s Surface, layers []Layer, imgs []image.Image) {
	s.Clear()
	for i, l := range layers {
		b := imgs[i].Bounds()
		s.DrawLayer(imgs[i], l.X, l.Y, b.Dx()*l.ScaleX, b.Dy()*l.ScaleY)
	}
}

// Downscale shrinks a frame for a secondary display without filtering.
func Downscale(img image.Image, size image.Point) *image.NRGBA {
	return imaging.Resize(img, size.X, size.Y, imaging.NearestNeighbor)
}
