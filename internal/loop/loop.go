// Package loop runs a front panel: it owns the state machine, feeds it timer
// and battery events on a single goroutine and renders a frame for every
// change.
package loop

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"ndpanel/internal/battery"
	"ndpanel/internal/compositor"
	"ndpanel/internal/fsm"
	"ndpanel/internal/sched"
	"ndpanel/internal/state"
)

const (
	DefaultRefresh = 2 * time.Second
)

var ErrStopped = errors.New("loop stopped")

// Sink receives rendered frames. Push runs on the render goroutine.
type Sink interface {
	Push(f *compositor.Frame) error
}

type SinkFunc func(f *compositor.Frame) error

func (fn SinkFunc) Push(f *compositor.Frame) error {
	return fn(f)
}

// Controller is the input surface of a running panel.
type Controller interface {
	ButtonDown() error
	ButtonUp() error
	Rotate(w state.Wheel, delta int) error
	SetMount(in bool) error
	SetCharge(on bool) error
	SetVoltage(v float64) error
	Snapshot() state.Snapshot
	Frame(ctx context.Context) (*compositor.Frame, error)
}

type Option func(l *Loop)

func WithLogger(logger *zap.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

func WithRefresh(d time.Duration) Option {
	return func(l *Loop) {
		l.refresh = d
	}
}

func WithBatteryTick(d time.Duration) Option {
	return func(l *Loop) {
		l.tick = d
	}
}

func WithSink(s ...Sink) Option {
	return func(l *Loop) {
		l.sinks = append(l.sinks, s...)
	}
}

// WithMachine passes options to the state machine. The loop supplies the
// clock.
func WithMachine(opts ...fsm.Option) Option {
	return func(l *Loop) {
		l.mopts = append(l.mopts, opts...)
	}
}

func New(r *compositor.Renderer, opts ...Option) *Loop {
	l := &Loop{
		r:       r,
		logger:  zap.NewNop(),
		refresh: DefaultRefresh,
		tick:    battery.DefaultTick,
		ops:     make(chan func(), 64),
		latest:  make(chan state.Snapshot, 1),
		stopped: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	l.clock = sched.NewReal(l.post)
	l.m = fsm.New(append(l.mopts, fsm.WithClock(l.clock), fsm.WithLogger(l.logger))...)
	l.logger = l.logger.With(zap.String("via", "loop"))
	l.snap = l.m.Snapshot()
	l.m.OnChange(func(_ string, _, next state.Snapshot) {
		l.publish(next)
	})

	return l
}

type Loop struct {
	m     *fsm.Machine
	mopts []fsm.Option
	r     *compositor.Renderer
	clock sched.Clock

	logger  *zap.Logger
	refresh time.Duration
	tick    time.Duration
	sinks   []Sink

	ops     chan func()
	latest  chan state.Snapshot
	stopped chan struct{}
	once    sync.Once

	mu    sync.RWMutex
	snap  state.Snapshot
	frame *compositor.Frame
}

// OnChange registers a listener on the machine. Call it before Run;
// listeners run on the loop goroutine.
func (l *Loop) OnChange(fn fsm.Listener) {
	l.m.OnChange(fn)
}

// Run drives the panel until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.stopped) })

	var wg sync.WaitGroup
	wg.Add(1)
	rctx, cancel := context.WithCancel(ctx)
	go func() {
		defer wg.Done()
		l.render(rctx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	periodic := sched.NewGroup(l.clock)
	defer periodic.Cancel()
	if l.tick > 0 {
		periodic.Every(l.tick, l.m.BatteryTick)
	}
	if l.refresh > 0 {
		periodic.Every(l.refresh, func() { l.request(l.m.Snapshot()) })
	}

	l.request(l.m.Snapshot())
	l.logger.With(zap.Duration("refresh", l.refresh), zap.Duration("tick", l.tick)).Info("running")

	for {
		select {
		case <-ctx.Done():
			l.m.PowerOff()
			l.logger.Info("stopped")
			return nil
		case fn := <-l.ops:
			fn()
		}
	}
}

// Do runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) Do(fn func(m *fsm.Machine)) error {
	done := make(chan struct{})
	select {
	case l.ops <- func() { fn(l.m); close(done) }:
	case <-l.stopped:
		return ErrStopped
	}

	select {
	case <-done:
		return nil
	case <-l.stopped:
		return ErrStopped
	}
}

func (l *Loop) post(fn func()) {
	select {
	case l.ops <- fn:
	case <-l.stopped:
	}
}

func (l *Loop) publish(s state.Snapshot) {
	l.mu.Lock()
	l.snap = s
	l.mu.Unlock()
	l.request(s)
}

// request hands s to the renderer, replacing a snapshot it has not picked
// up yet.
func (l *Loop) request(s state.Snapshot) {
	select {
	case l.latest <- s:
		return
	default:
	}
	select {
	case <-l.latest:
	default:
	}
	select {
	case l.latest <- s:
	default:
	}
}

func (l *Loop) render(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-l.latest:
			f, err := l.r.Render(ctx, s)
			if err != nil {
				if ctx.Err() == nil {
					l.logger.With(zap.Error(err)).Info("render failed")
				}
				continue
			}

			l.mu.Lock()
			l.frame = f
			l.mu.Unlock()

			for _, sink := range l.sinks {
				if err := sink.Push(f); err != nil {
					l.logger.With(zap.Error(err)).Info("push frame failed")
				}
			}
		}
	}
}

func (l *Loop) ButtonDown() error {
	return l.Do(func(m *fsm.Machine) { m.ButtonDown() })
}

func (l *Loop) ButtonUp() error {
	return l.Do(func(m *fsm.Machine) { m.ButtonUp() })
}

func (l *Loop) Rotate(w state.Wheel, delta int) error {
	return l.Do(func(m *fsm.Machine) { m.Rotate(w, delta) })
}

func (l *Loop) SetMount(in bool) error {
	return l.Do(func(m *fsm.Machine) { m.SetMount(in) })
}

func (l *Loop) SetCharge(on bool) error {
	return l.Do(func(m *fsm.Machine) { m.SetCharge(on) })
}

func (l *Loop) SetVoltage(v float64) error {
	return l.Do(func(m *fsm.Machine) { m.SetVoltage(v) })
}

func (l *Loop) Snapshot() state.Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap
}

// Latest returns the last frame pushed to the sinks, or nil.
func (l *Loop) Latest() *compositor.Frame {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.frame
}

// Frame renders the current snapshot.
func (l *Loop) Frame(ctx context.Context) (*compositor.Frame, error) {
	return l.r.Render(ctx, l.Snapshot())
}

var _ Controller = (*Loop)(nil)
