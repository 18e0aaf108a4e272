// Package value holds the legal device values and their stepping rules.
package value

import (
	"github.com/samber/lo"

	"ndpanel/internal/state"
)

// MajorIncrement is the distance between two major ND stops.
const MajorIncrement = 48

// Pattern is the position of the stops inside one major increment.
var Pattern = []int{0, 12, 16, 24, 32, 36}

// Majors are the ND labels of the major stops.
var Majors = []float64{0.6, 0.9, 1.2, 1.5, 1.8, 2.1}

// Steps is the ordered table of legal STEP mode values, 0.6 through 2.1.
var Steps = buildSteps()

func buildSteps() []int {
	var steps []int
	for base := state.MinValue; base < state.MaxValue; base += MajorIncrement {
		for _, off := range Pattern {
			steps = append(steps, base+off)
		}
	}
	return append(steps, state.MaxValue)
}

func IndexOf(v int) int {
	return lo.IndexOf(Steps, v)
}

func Contains(v int) bool {
	return IndexOf(v) >= 0
}

// Nearest snaps v to the closest step value. On equal distance the earlier
// table entry wins.
func Nearest(v int) int {
	nearest := Steps[0]
	minDiff := abs(v - nearest)
	for _, s := range Steps {
		if d := abs(v - s); d < minDiff {
			minDiff = d
			nearest = s
		}
	}
	return nearest
}

// StepIndex moves index i against delta, clamped to the table bounds.
func StepIndex(i, delta int) int {
	return lo.Clamp(i-sign(delta), 0, len(Steps)-1)
}

// Step moves a step value one table entry. A negative delta moves toward
// higher values. It panics when v is not a step value.
func Step(v, delta int) int {
	i := IndexOf(v)
	if i < 0 {
		panic("value: stepping from a non-step value")
	}
	return Steps[StepIndex(i, delta)]
}

// Fine moves v by one unit against delta, clamped to the legal range.
func Fine(v, delta int) int {
	return lo.Clamp(v-sign(delta), state.MinValue, state.MaxValue)
}

// Major returns the ND label of the major stop containing v.
func Major(v int) float64 {
	return Majors[lo.Clamp(v/MajorIncrement, 0, len(Majors)-1)]
}

func Minor(v int) int {
	return v % MajorIncrement
}

func sign(d int) int {
	return lo.Ternary(d < 0, -1, lo.Ternary(d > 0, 1, 0))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
