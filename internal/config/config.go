// Package config holds the simulator configuration. Values are layered:
// defaults, then an optional YAML file, then NDPANEL_ environment variables.
package config

import (
	"time"

	"github.com/pkg/errors"

	"ndpanel/internal/battery"
	"ndpanel/internal/compositor"
	"ndpanel/internal/fsm"
	"ndpanel/internal/loop"
	"ndpanel/internal/state"
)

const (
	DefaultRPCListen = "127.0.0.1:9123"
	DefaultLogLevel  = "info"
)

type Config struct {
	Log     Log        `koanf:"log"`
	Timing  fsm.Timing `koanf:"timing"`
	Battery Battery    `koanf:"battery"`
	Loop    Loop       `koanf:"loop"`
	Render  Render     `koanf:"render"`
	Assets  Assets     `koanf:"assets"`
	Panel   Panel      `koanf:"panel"`
	RPC     RPC        `koanf:"rpc"`
	Bot     Bot        `koanf:"bot"`
	Start   Start      `koanf:"start"`
}

type Log struct {
	Level       string `koanf:"level"`
	Development bool   `koanf:"development"`
}

type Battery struct {
	Rate float64       `koanf:"rate"`
	Tick time.Duration `koanf:"tick"`
}

type Loop struct {
	Refresh time.Duration `koanf:"refresh"`
}

type Render struct {
	Scale           int    `koanf:"scale"`
	SecondaryWidth  int    `koanf:"secondary_width"`
	SecondaryHeight int    `koanf:"secondary_height"`
	Export          string `koanf:"export"`
}

type Assets struct {
	Dir       string `koanf:"dir"`
	URL       string `koanf:"url"`
	WriteBack bool   `koanf:"write_back"`
	Preload   bool   `koanf:"preload"`
}

// Panel selects the physical display the secondary frame is pushed to.
type Panel struct {
	Driver    string `koanf:"driver"`
	Port      string `koanf:"port"`
	Light     uint8  `koanf:"light"`
	Landscape bool   `koanf:"landscape"`
	Invert    bool   `koanf:"invert"`
	Strategy  string `koanf:"strategy"`
	Block     int    `koanf:"block"`
}

type RPC struct {
	Listen string `koanf:"listen"`
}

type Bot struct {
	Token  string  `koanf:"token"`
	Admins []int64 `koanf:"admins"`
}

// Start is the environment the panel boots into.
type Start struct {
	Mount   bool    `koanf:"mount"`
	USB     bool    `koanf:"usb"`
	Voltage float64 `koanf:"voltage"`
}

// Panel drivers.
const (
	DriverNone    = "none"
	DriverVirtual = "virtual"
	DriverInch35  = "inch35"
	DriverRemote  = "remote"
)

// Panel push strategies.
const (
	StrategyFull  = "full"
	StrategyBlock = "block"
)

func Default() *Config {
	return &Config{
		Log: Log{
			Level: DefaultLogLevel,
		},
		Timing: fsm.DefaultTiming(),
		Battery: Battery{
			Rate: battery.DefaultRate,
			Tick: battery.DefaultTick,
		},
		Loop: Loop{
			Refresh: loop.DefaultRefresh,
		},
		Render: Render{
			Scale:           compositor.DefaultScale,
			SecondaryWidth:  compositor.SecondarySize.X,
			SecondaryHeight: compositor.SecondarySize.Y,
		},
		Assets: Assets{
			Dir: "assets",
		},
		Panel: Panel{
			Driver:   DriverNone,
			Port:     "ttyACM0",
			Light:    100,
			Strategy: StrategyBlock,
			Block:    16,
		},
		RPC: RPC{
			Listen: DefaultRPCListen,
		},
		Start: Start{
			Voltage: state.InitialVoltage,
		},
	}
}

func (c *Config) Validate() error {
	t := c.Timing
	switch {
	case t.DoubleClick <= 0 || t.PressDelay <= 0 || t.ReleaseDelay <= 0 || t.Poll <= 0:
		return errors.New("timing: delays must be positive")
	case t.LongPress >= t.SuperLongPress:
		return errors.New("timing: long_press must be shorter than super_long_press")
	case t.CountdownSteps < 1 || t.CountdownSteps > state.CountdownSteps:
		return errors.Errorf("timing: countdown_steps must be between 1 and %d", state.CountdownSteps)
	case t.CountdownOffset < 0 || t.CountdownOffset >= t.SuperLongPress-t.LongPress:
		return errors.New("timing: countdown_offset outside the pending band")
	}

	if c.Battery.Rate <= 0 {
		return errors.New("battery: rate must be positive")
	}
	if c.Render.Scale < 1 {
		return errors.Errorf("render: invalid scale %d", c.Render.Scale)
	}
	if c.Render.SecondaryWidth < 1 || c.Render.SecondaryHeight < 1 {
		return errors.New("render: invalid secondary size")
	}
	if c.Start.Voltage < state.MinVoltage || c.Start.Voltage > state.MaxVoltage {
		return errors.Errorf("start: voltage %.2f out of range", c.Start.Voltage)
	}

	switch c.Panel.Driver {
	case DriverNone, DriverVirtual, DriverInch35, DriverRemote:
	default:
		return errors.Errorf("panel: unknown driver %q", c.Panel.Driver)
	}
	switch c.Panel.Strategy {
	case StrategyFull, StrategyBlock:
	default:
		return errors.Errorf("panel: unknown strategy %q", c.Panel.Strategy)
	}
	if c.Panel.Strategy == StrategyBlock && c.Panel.Block < 1 {
		return errors.New("panel: block size must be positive")
	}
	return nil
}

// Snapshot is the boot state described by Start.
func (c *Config) Snapshot() state.Snapshot {
	s := state.New()
	s.InMount = c.Start.Mount
	s.USBCharge = c.Start.USB
	s.Voltage = c.Start.Voltage
	return s
}

func (c *Config) Simulator() *battery.Simulator {
	b := battery.New()
	b.Rate = c.Battery.Rate
	return b
}
