package bot

import (
	"bytes"
	"context"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndpanel/internal/compositor"
	"ndpanel/internal/state"
)

type fakeCtrl struct {
	mu    sync.Mutex
	snap  state.Snapshot
	calls []string
}

func (f *fakeCtrl) do(name string, fn func(s *state.Snapshot)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if fn != nil {
		fn(&f.snap)
	}
	return nil
}

func (f *fakeCtrl) ButtonDown() error { return f.do("down", nil) }
func (f *fakeCtrl) ButtonUp() error   { return f.do("up", nil) }
func (f *fakeCtrl) Rotate(w state.Wheel, delta int) error {
	return f.do("rotate-"+w.String(), func(s *state.Snapshot) { s.Value -= delta })
}
func (f *fakeCtrl) SetMount(in bool) error {
	return f.do("mount", func(s *state.Snapshot) { s.InMount = in })
}
func (f *fakeCtrl) SetCharge(on bool) error {
	return f.do("usb", func(s *state.Snapshot) { s.USBCharge = on })
}
func (f *fakeCtrl) SetVoltage(v float64) error {
	return f.do("volt", func(s *state.Snapshot) { s.Voltage = v })
}
func (f *fakeCtrl) Snapshot() state.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}
func (f *fakeCtrl) Frame(context.Context) (*compositor.Frame, error) {
	return &compositor.Frame{
		Full:      imaging.New(32, 64, color.Black),
		Secondary: imaging.New(8, 16, color.Black),
	}, nil
}

func newBot(t *testing.T) (*Bot, *fakeCtrl) {
	ctrl := &fakeCtrl{snap: state.New()}
	b, err := New("", ctrl, WithOffline(), WithAdmins(42))
	require.NoError(t, err)
	b.hold, b.gap = 0, 0
	b.Start()
	t.Cleanup(b.Stop)
	return b, ctrl
}

func TestButtonCommands(t *testing.T) {
	b, ctrl := newBot(t)

	for _, cmd := range []string{"/down", "/up", "/click", "/dclick"} {
		reply, err := b.Run(cmd, "")
		require.NoError(t, err, cmd)
		assert.Equal(t, "OK", reply)
	}
	_, err := b.Run("/click", "3")
	require.NoError(t, err)
	_, err = b.Run("/hold", "1ms")
	require.NoError(t, err)

	assert.Len(t, ctrl.calls, 2+2+4+6+2)

	_, err = b.Run("/hold", "soon")
	assert.True(t, errors.Is(err, ErrUsage))
	_, err = b.Run("/click", "0")
	assert.True(t, errors.Is(err, ErrUsage))
}

func TestEnvironmentCommands(t *testing.T) {
	b, ctrl := newBot(t)

	reply, err := b.Run("/mount", "")
	require.NoError(t, err)
	assert.Equal(t, "mount: on", reply)
	reply, err = b.Run("/mount", "off")
	require.NoError(t, err)
	assert.Equal(t, "mount: off", reply)

	reply, err = b.Run("/usb", "yes")
	require.NoError(t, err)
	assert.Equal(t, "usb: on", reply)
	_, err = b.Run("/usb", "maybe")
	assert.True(t, errors.Is(err, ErrUsage))

	_, err = b.Run("/volt", "4.1")
	require.NoError(t, err)
	reply, err = b.Run("/volt", "")
	require.NoError(t, err)
	assert.Equal(t, "4.10V", reply)

	reply, err = b.Run("/wheel", "-5")
	require.NoError(t, err)
	assert.Equal(t, "value: 5", reply)
	reply, err = b.Run("/btle", "")
	require.NoError(t, err)
	assert.Equal(t, "value: 6", reply)

	assert.Equal(t, []string{"mount", "mount", "usb", "volt", "rotate-primary", "rotate-btle"}, ctrl.calls)
}

func TestStateAndUnknown(t *testing.T) {
	b, _ := newBot(t)

	reply, err := b.Run("/state", "")
	require.NoError(t, err)
	assert.Contains(t, reply, "Mode: OFF")
	assert.Contains(t, reply, "Battery: 3.70V 58% (6/10)")

	_, err = b.Run("/reboot", "")
	assert.Error(t, err)
}

func TestFrame(t *testing.T) {
	b, _ := newBot(t)
	bs, err := b.Frame(context.Background(), true)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(bs))
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
}
