package bitmap

import (
	"image"
	"image/draw"
)

// Encode returns the RGB565 stream of src, row by row.
func Encode(src image.Image) []byte {
	if p, ok := src.(*RGB565); ok && p.Rect.Min == (image.Point{}) {
		return p.Pix
	}

	b := src.Bounds()
	dst := NewRGB565(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Rect, src, b.Min, draw.Src)
	return dst.Pix
}
