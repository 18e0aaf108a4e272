// Package bot remote controls a running panel over telegram.
package bot

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strconv"
	"strings"
	"time"

	"github.com/inhies/go-bytesize"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
	"gopkg.in/telebot.v3/middleware"

	"ndpanel/internal/battery"
	"ndpanel/internal/loop"
	"ndpanel/internal/state"
	"ndpanel/internal/value"
)

const (
	DefaultHold = 80 * time.Millisecond
	DefaultGap  = 60 * time.Millisecond
)

var ErrUsage = errors.New("bad arguments")

type Option func(b *Bot)

// WithAdmins only accepts commands from the given chats.
func WithAdmins(ids ...int64) Option {
	return func(b *Bot) {
		b.admins = ids
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(b *Bot) {
		b.logger = l
	}
}

func WithBattery(s *battery.Simulator) Option {
	return func(b *Bot) {
		b.battery = s
	}
}

// WithOffline builds the bot without contacting telegram.
func WithOffline() Option {
	return func(b *Bot) {
		b.offline = true
	}
}

func New(token string, ctrl loop.Controller, opts ...Option) (*Bot, error) {
	b := &Bot{
		ctrl:    ctrl,
		battery: battery.New(),
		logger:  zap.NewNop(),
		hold:    DefaultHold,
		gap:     DefaultGap,
	}

	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(zap.String("via", "bot"))

	tb, err := tele.NewBot(tele.Settings{
		Token:   token,
		Offline: b.offline,
		Poller: &tele.LongPoller{
			Timeout: 30 * time.Second,
		},
	})
	if err != nil {
		return nil, err
	}
	b.b = tb

	return b, nil
}

type Bot struct {
	b       *tele.Bot
	ctrl    loop.Controller
	battery *battery.Simulator
	logger  *zap.Logger
	admins  []int64
	offline bool

	hold time.Duration
	gap  time.Duration
}

type command func(payload string) (string, error)

func (b *Bot) commands() map[string]command {
	return map[string]command{
		"/down": func(string) (string, error) {
			return "OK", b.ctrl.ButtonDown()
		},
		"/up": func(string) (string, error) {
			return "OK", b.ctrl.ButtonUp()
		},
		"/click": func(in string) (string, error) {
			n := 1
			if in != "" {
				v, err := strconv.Atoi(in)
				if err != nil || v < 1 {
					return "", errors.Wrap(ErrUsage, "/click [count]")
				}
				n = v
			}
			return "OK", b.press(n, b.hold)
		},
		"/dclick": func(string) (string, error) {
			return "OK", b.press(2, b.hold)
		},
		"/hold": func(in string) (string, error) {
			d, err := time.ParseDuration(in)
			if err != nil || d <= 0 {
				return "", errors.Wrap(ErrUsage, "/hold <duration>")
			}
			return "OK", b.press(1, d)
		},
		"/wheel": b.rotate("/wheel", state.Primary),
		"/btle":  b.rotate("/btle", state.Secondary),
		"/mount": b.toggle("/mount", func(s state.Snapshot) bool { return s.InMount }, b.ctrl.SetMount),
		"/usb":   b.toggle("/usb", func(s state.Snapshot) bool { return s.USBCharge }, b.ctrl.SetCharge),
		"/volt": func(in string) (string, error) {
			if in == "" {
				return fmt.Sprintf("%.2fV", b.ctrl.Snapshot().Voltage), nil
			}
			v, err := strconv.ParseFloat(in, 64)
			if err != nil {
				return "", errors.Wrap(ErrUsage, "/volt [voltage]")
			}
			return "OK", b.ctrl.SetVoltage(v)
		},
		"/state": func(string) (string, error) {
			return b.describe(b.ctrl.Snapshot()), nil
		},
	}
}

// Run executes a text command and returns the reply.
func (b *Bot) Run(name, payload string) (string, error) {
	cmd, ok := b.commands()[name]
	if !ok {
		return "", errors.Errorf("unknown command %s", name)
	}
	return cmd(strings.TrimSpace(payload))
}

func (b *Bot) press(n int, hold time.Duration) error {
	for i := 0; i < n; i++ {
		if i > 0 {
			time.Sleep(b.gap)
		}
		if err := b.ctrl.ButtonDown(); err != nil {
			return err
		}
		time.Sleep(hold)
		if err := b.ctrl.ButtonUp(); err != nil {
			return err
		}
	}
	return nil
}

// rotate turns w; without a payload it moves one tick toward higher values.
func (b *Bot) rotate(name string, w state.Wheel) command {
	return func(in string) (string, error) {
		delta := -1
		if in != "" {
			v, err := strconv.Atoi(in)
			if err != nil {
				return "", errors.Wrapf(ErrUsage, "%s [ticks]", name)
			}
			delta = v
		}
		if err := b.ctrl.Rotate(w, delta); err != nil {
			return "", err
		}
		return fmt.Sprintf("value: %d", b.ctrl.Snapshot().Value), nil
	}
}

func (b *Bot) toggle(name string, get func(state.Snapshot) bool, set func(bool) error) command {
	return func(in string) (string, error) {
		var on bool
		switch strings.ToLower(in) {
		case "":
			on = !get(b.ctrl.Snapshot())
		case "on", "yes", "1", "true":
			on = true
		case "off", "no", "0", "false":
		default:
			return "", errors.Wrapf(ErrUsage, "%s [on|off]", name)
		}
		if err := set(on); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s: %s", strings.TrimPrefix(name, "/"), onOff(on)), nil
	}
}

func (b *Bot) describe(s state.Snapshot) string {
	lines := []string{
		fmt.Sprintf("Power: %s", onOff(s.Power)),
		fmt.Sprintf("Mode: %s", s.Mode),
		fmt.Sprintf("Value: %d (ND %.1f +%d)", s.Value, value.Major(s.Value), value.Minor(s.Value)),
		fmt.Sprintf("Locked: %s", onOff(s.Locked)),
		fmt.Sprintf("Mount: %s", onOff(s.InMount)),
		fmt.Sprintf("USB: %s", onOff(s.USBCharge)),
		fmt.Sprintf("Battery: %.2fV %.0f%% (%d/%d)",
			s.Voltage, b.battery.SoC(s.Voltage), b.battery.Level(s.Voltage), battery.Levels),
	}
	if step, ok := s.Countdown(); ok {
		lines = append(lines, fmt.Sprintf("Powering off: %d", step))
	}
	return strings.Join(lines, "\n")
}

func onOff(v bool) string {
	return lo.Ternary(v, "on", "off")
}

func (b *Bot) handleCommands() {
	for name := range b.commands() {
		name := name
		b.b.Handle(name, func(c tele.Context) error {
			reply, err := b.Run(name, c.Message().Payload)
			if err != nil {
				return c.Reply(fmt.Sprintf("%s failed: %s", name, err))
			}
			return c.Reply(reply)
		})
	}
}

func (b *Bot) handleFrame() {
	b.b.Handle("/frame", func(c tele.Context) error {
		bs, err := b.Frame(context.Background(), c.Message().Payload == "small")
		if err != nil {
			return c.Reply(fmt.Sprintf("render failed: %s", err))
		}
		b.logger.With(zap.String("size", bytesize.New(float64(len(bs))).String())).Debug("frame sent")
		return c.Reply(&tele.Photo{File: tele.FromReader(bytes.NewReader(bs))})
	})
}

// Frame renders the current state as PNG.
func (b *Bot) Frame(ctx context.Context, secondary bool) ([]byte, error) {
	f, err := b.ctrl.Frame(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, lo.Ternary(secondary, f.Secondary, f.Full)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b *Bot) Start() {
	if len(b.admins) > 0 {
		b.b.Use(middleware.Whitelist(b.admins...))
	}
	b.handleCommands()
	b.handleFrame()
	if !b.offline {
		go b.b.Start()
	}
	b.logger.With(zap.Int("admins", len(b.admins))).Info("started")
}

func (b *Bot) Stop() {
	if b.offline {
		return
	}
	// telebot's Stop blocks until the poller returns
	go b.b.Stop()
}
