package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndpanel/internal/fsm"
	"ndpanel/internal/state"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, fsm.DefaultTiming(), cfg.Timing)
	assert.Equal(t, 10, cfg.Render.Scale)

	s := cfg.Snapshot()
	assert.Equal(t, state.New(), s)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ndpanel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
timing:
  double_click: 150ms
  long_press: 800ms
panel:
  driver: virtual
start:
  mount: true
  voltage: 4.0
bot:
  admins: [1, 2]
`), 0644))

	t.Setenv("NDPANEL_TIMING__POLL", "20ms")
	t.Setenv("NDPANEL_RENDER__SCALE", "4")
	t.Setenv("NDPANEL_START__USB", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 150*time.Millisecond, cfg.Timing.DoubleClick)
	assert.Equal(t, 800*time.Millisecond, cfg.Timing.LongPress)
	assert.Equal(t, 20*time.Millisecond, cfg.Timing.Poll)
	assert.Equal(t, 200*time.Millisecond, cfg.Timing.PressDelay, "untouched keys keep defaults")
	assert.Equal(t, 4, cfg.Render.Scale)
	assert.Equal(t, DriverVirtual, cfg.Panel.Driver)
	assert.Equal(t, []int64{1, 2}, cfg.Bot.Admins)

	s := cfg.Snapshot()
	assert.True(t, s.InMount)
	assert.True(t, s.USBCharge)
	assert.Equal(t, 4.0, s.Voltage)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load("", WithEnvPrefix("NDPANEL_TEST_"), WithOverrides(map[string]any{
		"rpc.listen":   ":0",
		"panel.driver": DriverInch35,
		"panel.port":   "ttyUSB1",
	}))
	require.NoError(t, err)
	assert.Equal(t, ":0", cfg.RPC.Listen)
	assert.Equal(t, DriverInch35, cfg.Panel.Driver)
	assert.Equal(t, "ttyUSB1", cfg.Panel.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"driver":    func(c *Config) { c.Panel.Driver = "hdmi" },
		"strategy":  func(c *Config) { c.Panel.Strategy = "random" },
		"block":     func(c *Config) { c.Panel.Block = 0 },
		"scale":     func(c *Config) { c.Render.Scale = 0 },
		"tiers":     func(c *Config) { c.Timing.LongPress = c.Timing.SuperLongPress },
		"countdown": func(c *Config) { c.Timing.CountdownSteps = 0 },
		"frames":    func(c *Config) { c.Timing.CountdownSteps = state.CountdownSteps + 4 },
		"offset":    func(c *Config) { c.Timing.CountdownOffset = 10 * time.Second },
		"poll":      func(c *Config) { c.Timing.Poll = 0 },
		"voltage":   func(c *Config) { c.Start.Voltage = 5 },
		"rate":      func(c *Config) { c.Battery.Rate = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestCountdownStepsBounds(t *testing.T) {
	for n := 1; n <= state.CountdownSteps; n++ {
		c := Default()
		c.Timing.CountdownSteps = n
		assert.NoError(t, c.Validate(), n)
	}
}

func TestLogger(t *testing.T) {
	l, err := Log{Level: "debug", Development: true}.Logger()
	require.NoError(t, err)
	assert.NotNil(t, l)

	_, err = Log{Level: "loud"}.Logger()
	assert.Error(t, err)
}
