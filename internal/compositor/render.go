package compositor

import (
	"context"
	"image"
	"image/color"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"ndpanel/internal/state"
	"ndpanel/pkg/assets"
)

// SecondarySize is the default size of the downscaled copy pushed to the
// physical display.
var SecondarySize = image.Pt(Width*2, Height*2)

// Loader resolves asset keys to images.
type Loader interface {
	Load(ctx context.Context, key assets.Key) (image.Image, error)
}

// Frame is one rendered snapshot.
type Frame struct {
	Snapshot  state.Snapshot
	Layers    []Layer
	Full      *image.NRGBA
	Secondary *image.NRGBA
}

type RenderOption func(r *Renderer)

// WithSecondary sets the size of the downscaled frame.
func WithSecondary(size image.Point) RenderOption {
	return func(r *Renderer) {
		if size.X > 0 && size.Y > 0 {
			r.secondary = size
		}
	}
}

func NewRenderer(c *Compositor, l Loader, opts ...RenderOption) *Renderer {
	r := &Renderer{c: c, l: l, secondary: SecondarySize}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type Renderer struct {
	c         *Compositor
	l         Loader
	secondary image.Point
}

func (r *Renderer) Compositor() *Compositor {
	return r.c
}

// Render composes s, loads every referenced asset and paints the frame.
func (r *Renderer) Render(ctx context.Context, s state.Snapshot) (*Frame, error) {
	layers := r.c.Compose(s)
	imgs := make([]image.Image, len(layers))

	g, gctx := errgroup.WithContext(ctx)
	for i := range layers {
		i := i
		g.Go(func() error {
			img, err := r.l.Load(gctx, layers[i].Key)
			if err != nil {
				return errors.Wrapf(err, "load layer %s", layers[i].Key)
			}
			imgs[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	surf := NewImageSurface(r.c.Size(), color.Black)
	Paint(surf, layers, imgs)

	return &Frame{
		Snapshot:  s,
		Layers:    layers,
		Full:      surf.Image(),
		Secondary: Downscale(surf.Image(), r.secondary),
	}, nil
}
