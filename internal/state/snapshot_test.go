package state

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s := New()
	assert.False(t, s.Power)
	assert.Equal(t, Off, s.Mode)
	assert.Equal(t, 0, s.Value)
	assert.Equal(t, 3.7, s.Voltage)
	assert.Equal(t, -1, s.PoweringOffStep)
	require.NoError(t, s.Validate(nil))
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{Off, Step, Fine, Btle} {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	got, err := ParseMode("fine")
	require.NoError(t, err)
	assert.Equal(t, Fine, got)

	_, err = ParseMode("btleq")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	even := func(v int) bool { return v%2 == 0 }

	cases := []struct {
		name string
		edit func(s *Snapshot)
		ok   bool
	}{
		{"powered step", func(s *Snapshot) { s.Power, s.Mode, s.Value = true, Step, 12 }, true},
		{"off step value", func(s *Snapshot) { s.Power, s.Mode, s.Value = true, Step, 13 }, false},
		{"fine any value", func(s *Snapshot) { s.Power, s.Mode, s.Value = true, Fine, 13 }, true},
		{"value above range", func(s *Snapshot) { s.Power, s.Mode, s.Value = true, Fine, 241 }, false},
		{"negative value", func(s *Snapshot) { s.Value = -1 }, false},
		{"unpowered with mode", func(s *Snapshot) { s.Mode = Fine }, false},
		{"unpowered countdown", func(s *Snapshot) { s.PoweringOff, s.PoweringOffStep = true, 2 }, false},
		{"powered without mode", func(s *Snapshot) { s.Power = true }, false},
		{"voltage low", func(s *Snapshot) { s.Voltage = 2.9 }, false},
		{"voltage nan", func(s *Snapshot) { s.Voltage = math.NaN() }, false},
		{"countdown past last frame", func(s *Snapshot) {
			s.Power, s.Mode, s.PoweringOff, s.PoweringOffStep = true, Step, true, CountdownSteps
		}, false},
		{"last mode btle", func(s *Snapshot) { s.LastMode = Btle }, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := New()
			c.edit(&s)
			err := s.Validate(even)
			if c.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCountdown(t *testing.T) {
	s := New()
	_, ok := s.Countdown()
	assert.False(t, ok)

	s.Power, s.Mode = true, Step
	s.PoweringOff, s.PoweringOffStep = true, 2
	step, ok := s.Countdown()
	assert.True(t, ok)
	assert.Equal(t, 2, step)
}
