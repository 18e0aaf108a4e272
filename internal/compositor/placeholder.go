package compositor

import (
	"hash/fnv"
	"image"
	"image/color"

	"ndpanel/pkg/assets"
)

// nativeSizes are the bitmap sizes per asset directory.
var nativeSizes = map[string]image.Point{
	"battery":  {14, 6},
	"charge":   {8, 6},
	"ndstep":   {25, 36},
	"ndfine":   {25, 36},
	"scale":    {7, 50},
	"subscale": {7, 50},
	"lock":     {8, 8},
	"shutdown": {32, 13},
	"mode":     {32, 13},
}

func NativeSize(key assets.Key) image.Point {
	if p, ok := nativeSizes[key.Dir()]; ok {
		return p
	}
	return image.Pt(8, 8)
}

// Placeholder draws a stand-in bitmap for key: a white frame around a
// pattern derived from the key, so distinct keys give distinct pixels.
func Placeholder(key assets.Key) image.Image {
	size := NativeSize(key)
	img := image.NewGray(image.Rect(0, 0, size.X, size.Y))

	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	bits := h.Sum64()

	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			on := x == 0 || y == 0 || x == size.X-1 || y == size.Y-1
			if !on {
				i := uint((y*size.X + x) % 64)
				on = bits>>i&1 == 1
			}
			if on {
				img.SetGray(x, y, color.Gray{Y: 0xFF})
			}
		}
	}

	return img
}
