package compositor

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"ndpanel/internal/battery"
	"ndpanel/internal/state"
	"ndpanel/internal/value"
	"ndpanel/pkg/assets"
)

// Marker is the repeating set of scale markers inside one major stop.
var Marker = value.Pattern

// Interstitial is the bottom indicator shown while a long-press transition
// is pending.
const Interstitial = "btleq"

func BatteryKey(level int) assets.Key {
	return assets.Key(fmt.Sprintf("battery/bat%02d.bmp", level))
}

func NDStepKey(index int) assets.Key {
	return assets.Key(fmt.Sprintf("ndstep/ndstep%02d.bmp", index))
}

func NDFineKey(v int) assets.Key {
	return assets.Key(fmt.Sprintf("ndfine/ndfine%03d.bmp", v))
}

func ScaleKey(marker int) assets.Key {
	return assets.Key(fmt.Sprintf("scale/scale%02d.bmp", marker))
}

func SubscaleKey(v int) assets.Key {
	return assets.Key(fmt.Sprintf("subscale/subscale%02d.bmp", v))
}

func LockKey(locked bool) assets.Key {
	return assets.Key(fmt.Sprintf("lock/lock%d.bmp", lo.Ternary(locked, 1, 0)))
}

func ShutdownKey(step int) assets.Key {
	return assets.Key(fmt.Sprintf("shutdown/shutdown%02d.bmp", step))
}

func ModeKey(name string) assets.Key {
	return assets.Key(fmt.Sprintf("mode/mode_%s.bmp", strings.ToLower(name)))
}

const ChargeKey = assets.Key("charge/charge.bmp")

// ScaleMarker is the largest marker not exceeding v's position inside its
// major stop.
func ScaleMarker(v int) int {
	base := v % value.MajorIncrement
	marker := Marker[0]
	for _, m := range Marker {
		if m > base {
			break
		}
		marker = m
	}
	return marker
}

// AllKeys lists every asset a frame can reference.
func AllKeys() []assets.Key {
	var keys []assets.Key
	for l := 1; l <= battery.Levels; l++ {
		keys = append(keys, BatteryKey(l))
	}
	for i := range value.Steps {
		keys = append(keys, NDStepKey(i))
	}
	for v := state.MinValue; v <= state.MaxValue; v++ {
		keys = append(keys, NDFineKey(v))
	}
	keys = append(keys, lo.Map(Marker, func(m int, _ int) assets.Key { return ScaleKey(m) })...)
	for v := 0; v < value.MajorIncrement; v++ {
		keys = append(keys, SubscaleKey(v))
	}
	keys = append(keys, LockKey(false), LockKey(true))
	for s := 0; s < state.CountdownSteps; s++ {
		keys = append(keys, ShutdownKey(s))
	}
	for _, m := range []state.Mode{state.Step, state.Fine, state.Btle} {
		keys = append(keys, ModeKey(m.String()))
	}
	return append(keys, ModeKey(Interstitial), ChargeKey)
}
