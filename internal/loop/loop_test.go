package loop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"ndpanel/internal/compositor"
	"ndpanel/internal/fsm"
	"ndpanel/internal/state"
	"ndpanel/pkg/assets"
)

const ms = time.Millisecond

func fastTiming() fsm.Timing {
	return fsm.Timing{
		DoubleClick:     20 * ms,
		PressDelay:      5 * ms,
		ReleaseDelay:    5 * ms,
		LongPress:       60 * ms,
		SuperLongPress:  2 * time.Second,
		CountdownOffset: 20 * ms,
		CountdownSteps:  4,
		Poll:            5 * ms,
	}
}

func renderer(t *testing.T) *compositor.Renderer {
	fs := afero.NewMemMapFs()
	_, err := assets.Seed(fs, compositor.AllKeys(), compositor.Placeholder, false)
	require.NoError(t, err)
	return compositor.NewRenderer(compositor.New(1, nil), assets.NewStore(fs))
}

type frames struct {
	mu  sync.Mutex
	all []*compositor.Frame
}

func (f *frames) Push(fr *compositor.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.all = append(f.all, fr)
	return nil
}

func (f *frames) last() *compositor.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.all) == 0 {
		return nil
	}
	return f.all[len(f.all)-1]
}

func start(t *testing.T, opts ...Option) (*Loop, func()) {
	opts = append([]Option{
		WithLogger(zaptest.NewLogger(t)),
		WithMachine(fsm.WithTiming(fastTiming())),
	}, opts...)
	l := New(renderer(t), opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	return l, func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("loop did not stop")
		}
	}
}

func TestLoopPowerOnRendersFrame(t *testing.T) {
	sink := &frames{}
	l, stop := start(t, WithSink(sink), WithBatteryTick(0))
	defer stop()

	require.NoError(t, l.SetMount(true))
	require.NoError(t, l.ButtonDown())
	time.Sleep(100 * ms)
	require.NoError(t, l.ButtonUp())

	assert.Eventually(t, func() bool { return l.Snapshot().Power }, time.Second, 5*ms)
	assert.Eventually(t, func() bool {
		f := sink.last()
		return f != nil && f.Snapshot.Power && len(f.Layers) == 5
	}, time.Second, 5*ms)
	assert.Equal(t, state.Step, l.Snapshot().Mode)
	assert.NotNil(t, l.Latest())
}

func TestLoopBatteryTick(t *testing.T) {
	l, stop := start(t, WithBatteryTick(5*ms))
	defer stop()

	require.NoError(t, l.SetCharge(true))
	assert.Eventually(t, func() bool {
		return l.Snapshot().Voltage > state.InitialVoltage
	}, time.Second, 5*ms)
}

func TestLoopRefreshRenders(t *testing.T) {
	sink := &frames{}
	l, stop := start(t, WithSink(sink), WithRefresh(10*ms), WithBatteryTick(0))
	defer stop()
	_ = l

	assert.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.all) >= 3
	}, time.Second, 5*ms)
}

func TestLoopFrame(t *testing.T) {
	l, stop := start(t, WithBatteryTick(0))
	defer stop()

	require.NoError(t, l.SetCharge(true))
	f, err := l.Frame(context.Background())
	require.NoError(t, err)
	require.Len(t, f.Layers, 1)
	assert.Equal(t, compositor.ChargeKey, f.Layers[0].Key)
}

func TestLoopStopped(t *testing.T) {
	l, stop := start(t)
	require.NoError(t, l.SetMount(true))
	stop()

	assert.ErrorIs(t, l.ButtonDown(), ErrStopped)
	assert.ErrorIs(t, l.Do(func(*fsm.Machine) {}), ErrStopped)
}

func TestLoopListener(t *testing.T) {
	var mu sync.Mutex
	var reasons []string

	l := New(renderer(t), WithBatteryTick(0))
	l.OnChange(func(reason string, _, _ state.Snapshot) {
		mu.Lock()
		reasons = append(reasons, reason)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = l.Run(ctx)
		close(done)
	}()

	require.NoError(t, l.SetMount(true))
	require.NoError(t, l.SetVoltage(3.9))
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"mount", "voltage"}, reasons)
}

func TestRequestKeepsLatest(t *testing.T) {
	l := New(renderer(t))

	a, b := state.New(), state.New()
	b.USBCharge = true
	l.request(a)
	l.request(b)

	got := <-l.latest
	assert.True(t, got.USBCharge)
	assert.Empty(t, l.latest)
}
