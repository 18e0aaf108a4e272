// Package compositor renders a panel snapshot as a stack of bitmap layers.
package compositor

import (
	"image"

	"ndpanel/internal/battery"
	"ndpanel/internal/state"
	"ndpanel/internal/value"
	"ndpanel/pkg/assets"
)

const (
	// Width and Height are the native panel size in pixels.
	Width  = 32
	Height = 64

	DefaultScale = 10
)

// Native layer positions.
var (
	BatteryAt = image.Pt(0, 0)
	NDAt      = image.Pt(0, 7)
	ScaleAt   = image.Pt(25, 0)
	LockAt    = image.Pt(12, 43)
	BottomAt  = image.Pt(0, 51)
	ChargeAt  = image.Pt(15, 0)
)

// Layer is one draw command. X and Y are already scaled; the asset is drawn
// at its native size multiplied by ScaleX and ScaleY.
type Layer struct {
	Key    assets.Key
	X, Y   int
	ScaleX int
	ScaleY int
}

func New(scale int, b *battery.Simulator) *Compositor {
	if scale < 1 {
		scale = DefaultScale
	}
	if b == nil {
		b = battery.New()
	}
	return &Compositor{scale: scale, battery: b}
}

type Compositor struct {
	scale   int
	battery *battery.Simulator
}

func (c *Compositor) Scale() int {
	return c.scale
}

func (c *Compositor) Size() image.Point {
	return image.Pt(Width*c.scale, Height*c.scale)
}

// Compose returns the draw list for s, bottom layer first. It has no side
// effects; equal snapshots always yield equal lists.
func (c *Compositor) Compose(s state.Snapshot) []Layer {
	var layers []Layer

	if s.Power {
		layers = append(layers, c.layer(BatteryKey(c.battery.Level(s.Voltage)), BatteryAt))

		if s.Mode == state.Step {
			i := value.IndexOf(s.Value)
			if i < 0 {
				panic("compositor: step mode value outside the step table")
			}
			layers = append(layers,
				c.layer(NDStepKey(i), NDAt),
				c.layer(ScaleKey(ScaleMarker(s.Value)), ScaleAt),
			)
		} else {
			layers = append(layers,
				c.layer(NDFineKey(s.Value), NDAt),
				c.layer(SubscaleKey(value.Minor(s.Value)), ScaleAt),
			)
		}

		layers = append(layers, c.layer(LockKey(s.Locked), LockAt))
		layers = append(layers, c.layer(bottomKey(s), BottomAt))
	}

	if s.USBCharge {
		layers = append(layers, c.layer(ChargeKey, ChargeAt))
	}

	return layers
}

func bottomKey(s state.Snapshot) assets.Key {
	if step, ok := s.Countdown(); ok {
		return ShutdownKey(step)
	}
	if s.Pending() {
		return ModeKey(Interstitial)
	}
	return ModeKey(s.Mode.String())
}

func (c *Compositor) layer(key assets.Key, at image.Point) Layer {
	return Layer{
		Key:    key,
		X:      at.X * c.scale,
		Y:      at.Y * c.scale,
		ScaleX: c.scale,
		ScaleY: c.scale,
	}
}
