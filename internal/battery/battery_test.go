package battery

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"ndpanel/internal/state"
)

func TestSoC(t *testing.T) {
	b := New()
	assert.Equal(t, 0.0, b.SoC(3.0))
	assert.Equal(t, 0.0, b.SoC(2.5))
	assert.Equal(t, 100.0, b.SoC(4.2))
	assert.Equal(t, 100.0, b.SoC(5))
	assert.InDelta(t, 50.0, b.SoC(3.6), 1e-9)
}

func TestLevel(t *testing.T) {
	b := New()
	assert.Equal(t, 1, b.Level(3.0))
	assert.Equal(t, 1, b.Level(3.01))
	assert.Equal(t, 5, b.Level(3.6))
	assert.Equal(t, 6, b.Level(3.61))
	assert.Equal(t, 10, b.Level(4.2))

	assert.Equal(t, 2, b.Level(3.24))
	assert.Equal(t, 3, b.Level(3.25))

	prev := 1
	for v := 3.0; v <= 4.2; v += 0.005 {
		l := b.Level(v)
		assert.GreaterOrEqual(t, l, prev, "level(%.3f)", v)
		assert.LessOrEqual(t, l, 10)
		prev = l
	}
}

func TestTick(t *testing.T) {
	b := New()

	s := state.New()
	assert.False(t, b.Tick(&s))
	assert.Equal(t, 3.7, s.Voltage, "unpowered battery holds its charge")

	s.USBCharge = true
	assert.False(t, b.Tick(&s))
	assert.InDelta(t, 3.7+DefaultRate, s.Voltage, 1e-9)

	s.Voltage = 4.19
	b.Tick(&s)
	assert.Equal(t, 4.2, s.Voltage)

	s.USBCharge = false
	s.Power, s.Mode = true, state.Step
	assert.False(t, b.Tick(&s))
	assert.InDelta(t, 4.2-DefaultRate, s.Voltage, 1e-9)

	s.Voltage = 3.01
	assert.True(t, b.Tick(&s))
	assert.Equal(t, 3.0, s.Voltage)
}

func TestClamp(t *testing.T) {
	b := New()
	assert.Equal(t, 3.0, b.Clamp(0))
	assert.Equal(t, 4.2, b.Clamp(9))
	assert.Equal(t, 3.3, b.Clamp(3.3))
	assert.Equal(t, 3.0, b.Clamp(math.NaN()))
}
