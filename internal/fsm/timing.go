package fsm

import (
	"time"

	"ndpanel/internal/state"
)

// Timing holds the button timing constants. The double-click window and the
// two deferrals share a default but are tuned independently.
type Timing struct {
	DoubleClick     time.Duration `koanf:"double_click"`
	PressDelay      time.Duration `koanf:"press_delay"`
	ReleaseDelay    time.Duration `koanf:"release_delay"`
	LongPress       time.Duration `koanf:"long_press"`
	SuperLongPress  time.Duration `koanf:"super_long_press"`
	CountdownOffset time.Duration `koanf:"countdown_offset"`
	CountdownSteps  int           `koanf:"countdown_steps"`
	Poll            time.Duration `koanf:"poll"`
}

func DefaultTiming() Timing {
	return Timing{
		DoubleClick:     200 * time.Millisecond,
		PressDelay:      200 * time.Millisecond,
		ReleaseDelay:    200 * time.Millisecond,
		LongPress:       time.Second,
		SuperLongPress:  5 * time.Second,
		CountdownOffset: 500 * time.Millisecond,
		CountdownSteps:  state.CountdownSteps,
		Poll:            50 * time.Millisecond,
	}
}

func (t Timing) countdownStep() time.Duration {
	return (t.SuperLongPress - t.LongPress) / time.Duration(t.CountdownSteps)
}

// countdown maps a hold duration inside the pending band to a countdown
// step, or -1 while the interstitial is still showing.
func (t Timing) countdown(d time.Duration) int {
	elapsed := d - t.LongPress - t.CountdownOffset
	if elapsed < 0 {
		return -1
	}
	step := int(elapsed / t.countdownStep())
	if step >= t.CountdownSteps {
		return -1
	}
	return step
}

func (t Timing) inPendingBand(d time.Duration) bool {
	return d >= t.LongPress && d < t.SuperLongPress
}
