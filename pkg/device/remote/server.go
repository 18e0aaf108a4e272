// Package remote exposes a running panel over net/rpc: the Panel service
// feeds simulated input, the Display service proxies a local display.
package remote

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net"
	"net/http"
	"net/rpc"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"ndpanel/internal/battery"
	"ndpanel/internal/loop"
	"ndpanel/internal/value"
	"ndpanel/pkg/proto"
)

const (
	DefaultHold = 80 * time.Millisecond
	DefaultGap  = 60 * time.Millisecond
	MetricsPath = "/metrics"
)

type Option func(s *Server)

// WithDisplay also serves dev as the Display service.
func WithDisplay(dev proto.Control) Option {
	return func(s *Server) {
		s.dev = dev
	}
}

func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

func WithBattery(b *battery.Simulator) Option {
	return func(s *Server) {
		s.battery = b
	}
}

func NewServer(addr string, ctrl loop.Controller, opts ...Option) (*Server, error) {
	s := &Server{
		addr:    addr,
		ctrl:    ctrl,
		battery: battery.New(),
		logger:  zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("via", "remote"))

	s.rpc = rpc.NewServer()
	if err := s.rpc.RegisterName("Panel", &Panel{ctrl: ctrl, battery: s.battery}); err != nil {
		return nil, err
	}
	if s.dev != nil {
		if err := s.rpc.RegisterName("Display", &Display{dev: s.dev}); err != nil {
			return nil, err
		}
	}

	mux := http.NewServeMux()
	mux.Handle(rpc.DefaultRPCPath, s.rpc)
	if s.metrics != nil {
		mux.Handle(MetricsPath, s.metrics)
	}
	s.srv = &http.Server{Addr: addr, Handler: mux}

	return s, nil
}

type Server struct {
	addr    string
	ctrl    loop.Controller
	dev     proto.Control
	metrics http.Handler
	battery *battery.Simulator
	logger  *zap.Logger

	rpc *rpc.Server
	srv *http.Server
	ln  net.Listener
}

func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Addr is the bound address once started.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", s.addr)
	}
	s.ln = ln

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.With(zap.Error(err)).Error("serve failed")
		}
	}()

	s.logger.With(zap.String("addr", s.Addr())).Info("listening")
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Serve ties the server to an fx lifecycle.
func Serve(s *Server, lifecycle fx.Lifecycle) {
	lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return s.Start()
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
}

// Panel is the rpc surface of a loop.Controller.
type Panel struct {
	ctrl    loop.Controller
	battery *battery.Simulator
}

func (p *Panel) Button(req ButtonRequest, _ *Empty) error {
	if req.Down {
		return p.ctrl.ButtonDown()
	}
	return p.ctrl.ButtonUp()
}

func (p *Panel) Click(req ClickRequest, _ *Empty) error {
	if req.Hold <= 0 {
		req.Hold = DefaultHold
	}
	if req.Gap <= 0 {
		req.Gap = DefaultGap
	}
	if req.Count < 1 {
		req.Count = 1
	}

	for i := 0; i < req.Count; i++ {
		if i > 0 {
			time.Sleep(req.Gap)
		}
		if err := p.ctrl.ButtonDown(); err != nil {
			return err
		}
		time.Sleep(req.Hold)
		if err := p.ctrl.ButtonUp(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Panel) Rotate(req RotateRequest, _ *Empty) error {
	return p.ctrl.Rotate(req.Wheel, req.Delta)
}

func (p *Panel) SetMount(in bool, _ *Empty) error {
	return p.ctrl.SetMount(in)
}

func (p *Panel) SetCharge(on bool, _ *Empty) error {
	return p.ctrl.SetCharge(on)
}

func (p *Panel) SetVoltage(v float64, _ *Empty) error {
	return p.ctrl.SetVoltage(v)
}

func (p *Panel) State(_ Empty, resp *State) error {
	s := p.ctrl.Snapshot()
	*resp = State{
		Snapshot: s,
		SoC:      p.battery.SoC(s.Voltage),
		Level:    p.battery.Level(s.Voltage),
		Major:    value.Major(s.Value),
		Minor:    value.Minor(s.Value),
	}
	return nil
}

func (p *Panel) Frame(req FrameRequest, resp *FrameResponse) error {
	f, err := p.ctrl.Frame(context.Background())
	if err != nil {
		return err
	}

	var img image.Image = f.Full
	if req.Secondary {
		img = f.Secondary
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}
	resp.PNG = buf.Bytes()
	return nil
}

// Display proxies a local display panel.
type Display struct {
	dev proto.Control
}

func (d *Display) Command(name string, _ *Empty) error {
	switch name {
	case "startup":
		return d.dev.Startup()
	case "shutdown":
		return d.dev.Shutdown()
	}
	return errors.Errorf("unknown command %q", name)
}

func (d *Display) SetLight(light uint8, _ *Empty) error {
	return d.dev.SetLight(light)
}

func (d *Display) SetRotate(req SetRotateRequest, _ *Empty) error {
	return d.dev.SetRotate(req.Landscape, req.Invert)
}

func (d *Display) Size(_ Empty, resp *image.Point) error {
	*resp = d.dev.Size()
	return nil
}

func (d *Display) DrawBitmap(req *DrawBitmapRequest, _ *Empty) error {
	img, err := png.Decode(bytes.NewReader(req.Image))
	if err != nil {
		return err
	}
	return d.dev.DrawBitmap(req.PosX, req.PosY, img)
}
