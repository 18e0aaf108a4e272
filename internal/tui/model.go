// Package tui is a terminal front end for a running panel.
package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"ndpanel/internal/battery"
	"ndpanel/internal/compositor"
	"ndpanel/internal/loop"
	"ndpanel/internal/state"
)

// ClickHold is how long a click keeps the button down.
const ClickHold = 80 * time.Millisecond

// VoltageStep is the voltage change per +/- key.
const VoltageStep = 0.05

// FrameMsg carries a freshly rendered frame.
type FrameMsg struct {
	Frame *compositor.Frame
}

type releaseMsg struct{}

// Forwarder is a loop.Sink that hands frames to a program once attached.
// Frames pushed before Attach are dropped.
type Forwarder struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

func (f *Forwarder) Attach(p *tea.Program) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.send = p.Send
}

func (f *Forwarder) Push(fr *compositor.Frame) error {
	f.mu.Lock()
	send := f.send
	f.mu.Unlock()

	if send != nil {
		send(FrameMsg{Frame: fr})
	}
	return nil
}

var _ loop.Sink = (*Forwarder)(nil)

// Model is the root bubbletea model.
type Model struct {
	ctrl    loop.Controller
	battery *battery.Simulator

	width  int
	height int

	frame   *compositor.Frame
	snap    state.Snapshot
	pressed bool
	err     error
}

func New(ctrl loop.Controller, b *battery.Simulator) Model {
	if b == nil {
		b = battery.New()
	}
	return Model{
		ctrl:    ctrl,
		battery: b,
		snap:    ctrl.Snapshot(),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case FrameMsg:
		m.frame = msg.Frame
		m.snap = msg.Frame.Snapshot
		return m, nil

	case releaseMsg:
		if m.pressed {
			m.pressed = false
			m.do(m.ctrl.ButtonUp())
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m, tea.Quit

	case " ":
		m.pressed = !m.pressed
		if m.pressed {
			m.do(m.ctrl.ButtonDown())
		} else {
			m.do(m.ctrl.ButtonUp())
		}

	case "enter":
		if m.pressed {
			return m, nil
		}
		m.pressed = true
		m.do(m.ctrl.ButtonDown())
		return m, tea.Tick(ClickHold, func(time.Time) tea.Msg { return releaseMsg{} })

	case "up", "k":
		m.do(m.ctrl.Rotate(state.Primary, -1))
	case "down", "j":
		m.do(m.ctrl.Rotate(state.Primary, 1))
	case "]":
		m.do(m.ctrl.Rotate(state.Secondary, -1))
	case "[":
		m.do(m.ctrl.Rotate(state.Secondary, 1))

	case "m", "M":
		// moving the device drops any press in progress
		m.pressed = false
		m.do(m.ctrl.SetMount(!m.ctrl.Snapshot().InMount))
	case "u", "U":
		m.do(m.ctrl.SetCharge(!m.ctrl.Snapshot().USBCharge))
	case "+", "=":
		m.do(m.ctrl.SetVoltage(m.ctrl.Snapshot().Voltage + VoltageStep))
	case "-", "_":
		m.do(m.ctrl.SetVoltage(m.ctrl.Snapshot().Voltage - VoltageStep))
	}

	m.snap = m.ctrl.Snapshot()
	return m, nil
}

func (m *Model) do(err error) {
	m.err = err
}
