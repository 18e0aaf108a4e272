// Package bitmap converts frames into the little endian RGB565 pixel stream
// the serial panels expect.
package bitmap

import (
	"image"
	"image/color"
	"image/draw"
)

func NewRGB565(r image.Rectangle) *RGB565 {
	return &RGB565{
		Pix:    make([]byte, 2*r.Dx()*r.Dy()),
		Stride: 2 * r.Dx(),
		Rect:   r,
	}
}

// RGB565 is an in-memory image with two bytes per pixel, low byte first.
type RGB565 struct {
	Pix    []byte
	Stride int
	Rect   image.Rectangle
}

var _ draw.Image = (*RGB565)(nil)

func (p *RGB565) Bounds() image.Rectangle {
	return p.Rect
}

func (p *RGB565) ColorModel() color.Model {
	return Model
}

func (p *RGB565) offset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*2
}

func (p *RGB565) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return Color(0)
	}
	i := p.offset(x, y)
	return Color(p.Pix[i+1])<<8 | Color(p.Pix[i])
}

// Set stores c. Fully transparent colors leave the pixel untouched.
func (p *RGB565) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return
	}
	r, g, b, a := c.RGBA()
	if a == 0 {
		return
	}
	v := pack(r, g, b)
	i := p.offset(x, y)
	p.Pix[i] = byte(v)
	p.Pix[i+1] = byte(v >> 8)
}

// Model converts any color to RGB565.
var Model = color.ModelFunc(func(c color.Color) color.Color {
	if v, ok := c.(Color); ok {
		return v
	}
	r, g, b, _ := c.RGBA()
	return pack(r, g, b)
})

// pack keeps the top 5, 6 and 5 bits of the 16 bit channels.
func pack(r, g, b uint32) Color {
	return Color((r & 0xF800) | (g&0xFC00)>>5 | (b&0xF800)>>11)
}

// Color is one RGB565 pixel: RRRRRGGG GGGBBBBB.
type Color uint16

// RGBA widens each channel by repeating its bit pattern, so 0 and the
// channel maximum map to 0 and 0xFFFF.
func (c Color) RGBA() (r, g, b, a uint32) {
	rb := uint32(c&0xF800) >> 11
	gb := uint32(c&0x07E0) >> 5
	bb := uint32(c & 0x001F)

	r = rb<<11 | rb<<6 | rb<<1 | rb>>4
	g = gb<<10 | gb<<4 | gb>>2
	b = bb<<11 | bb<<6 | bb<<1 | bb>>4
	return r, g, b, 0xFFFF
}
