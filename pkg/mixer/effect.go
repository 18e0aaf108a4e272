package mixer

import "image"

type Write struct {
	At  image.Point
	Img image.Image
}

type Image interface {
	image.Image
	SubImage(image.Rectangle) image.Image
}

// Effect splits a frame into panel writes. prev is the frame last drawn, or
// nil when the panel content is unknown.
type Effect interface {
	Name() string
	Process(prev, next Image) (<-chan Write, error)
}

// EffectFull redraws the whole frame with a single write.
func EffectFull() Effect {
	return full{}
}

type full struct{}

func (full) Name() string {
	return "full"
}

func (full) Process(_, next Image) (<-chan Write, error) {
	wc := make(chan Write, 1)
	wc <- Write{At: next.Bounds().Min, Img: next}
	close(wc)
	return wc, nil
}
