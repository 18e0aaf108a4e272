package battery

import (
	"math"
	"time"

	"github.com/samber/lo"

	"ndpanel/internal/state"
)

const (
	DefaultRate = 1.0 / 60
	DefaultTick = time.Second
	Levels      = 10
)

func New() *Simulator {
	return &Simulator{
		Min:  state.MinVoltage,
		Max:  state.MaxVoltage,
		Rate: DefaultRate,
	}
}

// Simulator integrates charge and discharge in fixed ticks.
type Simulator struct {
	Min  float64
	Max  float64
	Rate float64
}

// Tick advances the battery by one tick. It reports true when a powered,
// discharging battery reached its minimum; the caller must power off.
func (b *Simulator) Tick(s *state.Snapshot) bool {
	if s.USBCharge {
		s.Voltage = math.Min(s.Voltage+b.Rate, b.Max)
		return false
	}
	if !s.Power {
		return false
	}
	s.Voltage = math.Max(s.Voltage-b.Rate, b.Min)
	return s.Voltage <= b.Min
}

// Clamp bounds v to [Min, Max]. NaN reads as an empty battery.
func (b *Simulator) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return b.Min
	}
	return lo.Clamp(v, b.Min, b.Max)
}

// SoC is the state of charge in percent.
func (b *Simulator) SoC(v float64) float64 {
	if v <= b.Min {
		return 0
	}
	if v >= b.Max {
		return 100
	}
	return (v - b.Min) / (b.Max - b.Min) * 100
}

// Level is the battery icon level, 1 to 10, rounded up. SoC is rounded to
// micro-percent first so a voltage sitting on a bucket boundary stays there.
func (b *Simulator) Level(v float64) int {
	soc := math.Round(b.SoC(v)*1e6) / 1e6
	return lo.Clamp(int(math.Ceil(soc/10)), 1, Levels)
}
