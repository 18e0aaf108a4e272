// Package fsm turns raw button, wheel and environment events into front
// panel state changes.
//
// A Machine is not safe for concurrent use. Every method, and every callback
// of the clock it runs on, must execute on the goroutine that owns it.
package fsm

import (
	"time"

	"go.uber.org/zap"

	"ndpanel/internal/battery"
	"ndpanel/internal/sched"
	"ndpanel/internal/state"
	"ndpanel/internal/value"
)

// Listener observes committed state changes.
type Listener func(reason string, prev, next state.Snapshot)

type Option func(m *Machine)

// WithClock sets the clock timers run on. Without it the machine gets a
// manual sched.Fake, reachable through Clock, that only moves when advanced.
func WithClock(c sched.Clock) Option {
	return func(m *Machine) {
		m.clock = c
	}
}

func WithTiming(t Timing) Option {
	return func(m *Machine) {
		m.timing = t
	}
}

func WithBattery(b *battery.Simulator) Option {
	return func(m *Machine) {
		m.battery = b
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Machine) {
		m.logger = l
	}
}

func WithSnapshot(s state.Snapshot) Option {
	return func(m *Machine) {
		m.s = s
	}
}

func New(opts ...Option) *Machine {
	m := &Machine{
		s:       state.New(),
		timing:  DefaultTiming(),
		battery: battery.New(),
		logger:  zap.NewNop(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.clock == nil {
		m.clock = sched.NewFake()
	}
	m.press = sched.NewGroup(m.clock)
	m.release = sched.NewGroup(m.clock)
	m.published = m.s
	m.logger = m.logger.With(zap.String("via", "fsm"))

	return m
}

type Machine struct {
	s         state.Snapshot
	published state.Snapshot

	clock     sched.Clock
	timing    Timing
	battery   *battery.Simulator
	logger    *zap.Logger
	listeners []Listener

	// press holds the deferred start and the hold poll of the current press,
	// release holds its deferred commit.
	press   *sched.Group
	release *sched.Group

	lastClick   time.Time
	pressStart  time.Time
	held        bool
	tracking    bool
	doubleClick bool
	poweredOn   bool
	lastStep    int
	commit      func()
}

func (m *Machine) OnChange(l Listener) {
	m.listeners = append(m.listeners, l)
}

func (m *Machine) Snapshot() state.Snapshot {
	return m.s
}

func (m *Machine) Clock() sched.Clock {
	return m.clock
}

func (m *Machine) Timing() Timing {
	return m.timing
}

func (m *Machine) Battery() *battery.Simulator {
	return m.battery
}

// ButtonDown starts a press, or toggles the lock when it lands inside the
// double-click window of the previous press on a powered device.
func (m *Machine) ButtonDown() {
	if !m.s.InMount {
		return
	}

	now := m.clock.Now()
	if m.s.Power && !m.lastClick.IsZero() && now.Sub(m.lastClick) < m.timing.DoubleClick {
		m.cancelPress()
		m.release.Cancel()
		m.commit = nil
		m.doubleClick = true
		m.s.Locked = !m.s.Locked
		m.s.BtlePending, m.s.RevertPending = false, false
		m.changed(lockReason(m.s.Locked))
		return
	}

	// the previous press was not superseded, so its release is final
	m.flushRelease()
	m.cancelPress()

	m.lastClick = now
	m.pressStart = now
	m.held = true
	m.tracking = true
	m.doubleClick = false
	m.poweredOn = false
	m.lastStep = -1
	m.s.BtlePending, m.s.RevertPending = false, false

	m.press.After(m.timing.PressDelay, func() {
		m.press.Every(m.timing.Poll, m.poll)
	})
}

// ButtonUp ends the press. Its effects commit after the release delay unless
// a double-click supersedes them first.
func (m *Machine) ButtonUp() {
	if !m.s.InMount {
		return
	}
	if m.doubleClick {
		m.cancelPress()
		m.release.Cancel()
		m.commit = nil
		return
	}
	if !m.held {
		return
	}

	d := m.clock.Now().Sub(m.pressStart)
	if m.tracking {
		m.evaluateHold(d)
	}
	m.held = false
	m.cancelPress()

	m.commit = func() { m.commitRelease(d) }
	m.release.After(m.timing.ReleaseDelay, m.flushRelease)
}

// maxTicks saturates any value from any position. It is a whole number of
// wheel revolutions, so trimming ticks beyond it keeps the indicator position.
var maxTicks = (len(value.Steps) + state.MaxValue + state.WheelPositions) / state.WheelPositions * state.WheelPositions

// Rotate applies wheel ticks. A negative delta moves toward higher values.
func (m *Machine) Rotate(w state.Wheel, delta int) {
	if !m.s.InMount || m.s.Locked || delta == 0 {
		return
	}

	dir, n := 1, delta
	if delta < 0 {
		dir, n = -1, -delta
	}

	if n > maxTicks {
		n = maxTicks + n%state.WheelPositions
	}
	for i := 0; i < n; i++ {
		m.tick(w, dir)
	}
	m.changed("rotate")
}

func (m *Machine) tick(w state.Wheel, dir int) {
	pos := &m.s.PrimaryWheel
	if w == state.Secondary {
		pos = &m.s.SecondaryWheel
	}
	*pos = (*pos + dir + state.WheelPositions) % state.WheelPositions

	if !m.s.Power {
		return
	}

	switch {
	case w == state.Secondary && m.s.Mode == state.Btle:
		m.s.Value = value.Fine(m.s.Value, dir)
	case w == state.Primary && m.s.Mode == state.Step:
		m.s.Value = value.Step(m.s.Value, dir)
	case w == state.Primary && m.s.Mode == state.Fine:
		m.s.Value = value.Fine(m.s.Value, dir)
	}
}

// SetMount moves the device in or out of its mount. Any press in progress is
// abandoned, and leaving the mount powers the device off.
func (m *Machine) SetMount(in bool) {
	if m.s.InMount == in {
		return
	}

	m.s.InMount = in
	m.abandonPress()

	if !in && m.s.Power {
		m.powerOff("unmounted")
		return
	}
	m.changed("mount")
}

func (m *Machine) SetCharge(on bool) {
	if m.s.USBCharge == on {
		return
	}
	m.s.USBCharge = on
	m.changed("charge")
}

// SetVoltage overrides the battery voltage. An empty battery powers a running
// device off.
func (m *Machine) SetVoltage(v float64) {
	m.s.Voltage = m.battery.Clamp(v)
	if m.s.Power && m.s.Voltage <= m.battery.Min {
		m.powerOff("battery-depleted")
		return
	}
	m.changed("voltage")
}

// BatteryTick integrates one battery tick.
func (m *Machine) BatteryTick() {
	before := m.s.Voltage
	if m.battery.Tick(&m.s) {
		m.powerOff("battery-depleted")
		return
	}
	if m.s.Voltage != before {
		m.changed("battery")
	}
}

// PowerOff forces the device off regardless of the lock.
func (m *Machine) PowerOff() {
	if !m.s.Power {
		return
	}
	m.powerOff("forced")
}

func (m *Machine) poll() {
	if !m.held || !m.tracking {
		m.cancelPress()
		return
	}
	m.evaluateHold(m.clock.Now().Sub(m.pressStart))
}

// evaluateHold applies the long-press tiers for a button held for d.
func (m *Machine) evaluateHold(d time.Duration) {
	t := m.timing

	if m.s.Mode == state.Off {
		if d >= t.LongPress {
			m.cancelPress()
			m.powerOn()
		}
		return
	}

	if m.s.Locked {
		return
	}

	if d >= t.SuperLongPress {
		m.cancelPress()
		m.s.BtlePending, m.s.RevertPending = false, false
		m.powerOff("long-press")
		return
	}

	if d < t.LongPress {
		return
	}

	if !m.s.Pending() {
		if m.s.Mode == state.Btle {
			m.s.RevertPending = true
		} else {
			m.s.BtlePending = true
		}
		m.changed("pending")
		return
	}

	if step := t.countdown(d); step >= 0 && step != m.lastStep {
		m.lastStep = step
		m.s.PoweringOff = true
		m.s.PoweringOffStep = step
		m.changed("countdown")
	}
}

func (m *Machine) flushRelease() {
	fn := m.commit
	if fn == nil {
		return
	}
	m.commit = nil
	m.release.Cancel()
	fn()
}

func (m *Machine) commitRelease(d time.Duration) {
	m.s.PoweringOff = false
	m.s.PoweringOffStep = -1

	reason := "release"
	switch {
	case m.poweredOn:
		m.poweredOn = false
	case m.s.Locked:
	case m.s.BtlePending && (m.s.Mode == state.Step || m.s.Mode == state.Fine):
		if m.timing.inPendingBand(d) {
			m.s.LastMode = m.s.Mode
			m.s.LastValue = m.s.Value
			m.s.Mode = state.Btle
			reason = "enter-btle"
		}
	case m.s.RevertPending && m.s.Mode == state.Btle:
		if m.timing.inPendingBand(d) {
			m.s.Mode = m.s.LastMode
			if m.s.Mode == state.Step {
				m.s.Value = value.Nearest(m.s.Value)
			}
			reason = "leave-btle"
		}
	case d < m.timing.LongPress && (m.s.Mode == state.Step || m.s.Mode == state.Fine):
		if m.s.Mode == state.Fine {
			m.s.Value = value.Nearest(m.s.Value)
			m.s.Mode = state.Step
		} else {
			m.s.Mode = state.Fine
		}
		m.s.LastMode = m.s.Mode
		reason = "toggle-mode"
	}

	m.s.BtlePending, m.s.RevertPending = false, false
	m.changed(reason)
}

func (m *Machine) powerOn() {
	if !m.s.InMount {
		return
	}

	m.s.Power = true
	m.s.Mode = m.s.LastMode
	m.s.Value = m.s.LastValue
	if m.s.Mode == state.Step {
		m.s.Value = value.Nearest(m.s.Value)
	}
	m.poweredOn = true
	m.changed("power-on")
}

func (m *Machine) powerOff(reason string) {
	if m.s.Mode != state.Btle && m.s.Mode != state.Off {
		m.s.LastMode = m.s.Mode
		m.s.LastValue = m.s.Value
	}

	m.cancelPress()
	m.release.Cancel()
	m.commit = nil
	m.poweredOn = false

	m.s.Power = false
	m.s.Mode = state.Off
	m.s.Locked = false
	m.s.PoweringOff = false
	m.s.PoweringOffStep = -1
	m.s.BtlePending, m.s.RevertPending = false, false
	m.changed(reason)
}

func (m *Machine) cancelPress() {
	m.press.Cancel()
	m.tracking = false
}

func (m *Machine) abandonPress() {
	m.cancelPress()
	m.release.Cancel()
	m.commit = nil
	m.held = false
	m.doubleClick = false
	m.poweredOn = false
	m.s.PoweringOff = false
	m.s.PoweringOffStep = -1
	m.s.BtlePending, m.s.RevertPending = false, false
}

func (m *Machine) changed(reason string) {
	if err := m.s.Validate(value.Contains); err != nil {
		m.logger.With(zap.String("reason", reason), zap.Error(err)).Error("invariant broken")
		panic(err)
	}

	prev := m.published
	m.published = m.s

	m.logger.With(
		zap.String("reason", reason),
		zap.Stringer("mode", m.s.Mode),
		zap.Int("value", m.s.Value),
		zap.Bool("locked", m.s.Locked),
	).Debug("changed")

	for _, l := range m.listeners {
		l(reason, prev, m.s)
	}
}

func lockReason(locked bool) string {
	if locked {
		return "lock"
	}
	return "unlock"
}
