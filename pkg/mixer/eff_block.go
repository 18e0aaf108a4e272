package mixer

import (
	"bytes"
	"image"

	"github.com/pkg/errors"
)

// EffectBlock writes only the size x size blocks that changed since the
// previous frame.
func EffectBlock(size int) Effect {
	return &block{size: size}
}

type block struct {
	size int
}

func (e *block) Name() string {
	return "block"
}

func (e *block) Process(prev, next Image) (<-chan Write, error) {
	if e.size < 1 {
		return nil, errors.Errorf("invalid block size %d", e.size)
	}

	r := next.Bounds()
	same := prev != nil && prev.Bounds() == r

	var ws []Write
	for y := r.Min.Y; y < r.Max.Y; y += e.size {
		for x := r.Min.X; x < r.Max.X; x += e.size {
			rect := image.Rect(x, y, min(x+e.size, r.Max.X), min(y+e.size, r.Max.Y))
			if same && equal(prev, next, rect) {
				continue
			}
			ws = append(ws, Write{At: rect.Min, Img: next.SubImage(rect)})
		}
	}

	wc := make(chan Write, len(ws))
	for _, w := range ws {
		wc <- w
	}
	close(wc)
	return wc, nil
}

func equal(a, b Image, rect image.Rectangle) bool {
	na, oka := a.(*image.NRGBA)
	nb, okb := b.(*image.NRGBA)
	if oka && okb {
		n := rect.Dx() * 4
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			i := na.PixOffset(rect.Min.X, y)
			j := nb.PixOffset(rect.Min.X, y)
			if !bytes.Equal(na.Pix[i:i+n], nb.Pix[j:j+n]) {
				return false
			}
		}
		return true
	}

	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			r1, g1, b1, a1 := a.At(x, y).RGBA()
			r2, g2, b2, a2 := b.At(x, y).RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
				return false
			}
		}
	}
	return true
}
