package remote

import (
	"time"

	"ndpanel/internal/state"
)

type Empty struct{}

type ButtonRequest struct {
	Down bool
}

// ClickRequest presses the button Count times, holding each press for Hold
// and pausing Gap between presses.
type ClickRequest struct {
	Hold  time.Duration
	Count int
	Gap   time.Duration
}

type RotateRequest struct {
	Wheel state.Wheel
	Delta int
}

type State struct {
	Snapshot state.Snapshot
	SoC      float64
	Level    int
	Major    float64
	Minor    int
}

type FrameRequest struct {
	Secondary bool
}

type FrameResponse struct {
	PNG []byte
}

type SetRotateRequest struct {
	Landscape bool
	Invert    bool
}

type DrawBitmapRequest struct {
	PosX  uint16
	PosY  uint16
	Image []byte
}
