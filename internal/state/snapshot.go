package state

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
)

const (
	MinValue = 0
	MaxValue = 240

	MinVoltage     = 3.0
	MaxVoltage     = 4.2
	InitialVoltage = 3.7

	// WheelPositions is one full revolution of a wheel indicator.
	WheelPositions = 16

	// CountdownSteps is the number of power-off countdown frames.
	CountdownSteps = 4
)

type Mode int

const (
	Off Mode = iota
	Step
	Fine
	Btle
)

func (m Mode) String() string {
	switch m {
	case Off:
		return "OFF"
	case Step:
		return "STEP"
	case Fine:
		return "FINE"
	case Btle:
		return "BTLE"
	default:
		return "UNKNOWN"
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(s) {
	case "OFF":
		return Off, nil
	case "STEP":
		return Step, nil
	case "FINE":
		return Fine, nil
	case "BTLE":
		return Btle, nil
	}
	return Off, errors.Errorf("unknown mode %q", s)
}

type Wheel int

const (
	Primary Wheel = iota
	Secondary
)

func (w Wheel) String() string {
	if w == Secondary {
		return "btle"
	}
	return "primary"
}

// Snapshot is the whole front-panel state. It is a value type: copies handed
// out of the state machine never alias the live state.
type Snapshot struct {
	Power     bool
	Mode      Mode
	Value     int
	LastMode  Mode
	LastValue int
	Locked    bool

	USBCharge bool
	InMount   bool
	Voltage   float64

	PoweringOff     bool
	PoweringOffStep int

	BtlePending   bool
	RevertPending bool

	PrimaryWheel   int
	SecondaryWheel int
}

func New() Snapshot {
	return Snapshot{
		Mode:            Off,
		LastMode:        Step,
		Voltage:         InitialVoltage,
		PoweringOffStep: -1,
	}
}

// Countdown reports the active power-off countdown step, if any.
func (s Snapshot) Countdown() (int, bool) {
	if s.PoweringOff && s.PoweringOffStep >= 0 {
		return s.PoweringOffStep, true
	}
	return -1, false
}

func (s Snapshot) Pending() bool {
	return s.BtlePending || s.RevertPending
}

func (s Snapshot) String() string {
	return fmt.Sprintf("power=%t mode=%s value=%d locked=%t mount=%t usb=%t voltage=%.2f",
		s.Power, s.Mode, s.Value, s.Locked, s.InMount, s.USBCharge, s.Voltage)
}

// Validate checks the invariants the state machine must never break. isStep
// reports table membership and is injected to keep this package free of the
// value tables.
func (s Snapshot) Validate(isStep func(int) bool) error {
	if s.Value < MinValue || s.Value > MaxValue {
		return errors.Errorf("value %d out of range", s.Value)
	}
	if s.Mode == Step && isStep != nil && !isStep(s.Value) {
		return errors.Errorf("value %d is not a step value", s.Value)
	}
	if math.IsNaN(s.Voltage) || s.Voltage < MinVoltage || s.Voltage > MaxVoltage {
		return errors.Errorf("voltage %.3f out of range", s.Voltage)
	}
	if !s.Power && (s.Mode != Off || s.PoweringOff || s.PoweringOffStep != -1) {
		return errors.New("unpowered device must be idle")
	}
	if s.Power && s.Mode == Off {
		return errors.New("powered device has no mode")
	}
	if s.PoweringOffStep < -1 || s.PoweringOffStep >= CountdownSteps {
		return errors.Errorf("countdown step %d out of range", s.PoweringOffStep)
	}
	if s.LastMode != Step && s.LastMode != Fine {
		return errors.Errorf("last mode %s not restorable", s.LastMode)
	}
	return nil
}
