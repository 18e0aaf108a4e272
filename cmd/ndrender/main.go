package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"ndpanel/internal/compositor"
	"ndpanel/internal/state"
	"ndpanel/internal/value"
	"ndpanel/pkg/assets"
)

var (
	assetDir  = flag.String("assets", "", "asset dir, placeholders in memory when empty")
	seed      = flag.Bool("seed", false, "write placeholder bitmaps for missing assets into --assets and exit")
	output    = flag.StringP("output", "o", "frame.png", "output png")
	export    = flag.String("export", "", "also write the frame under a unique name into dir")
	scale     = flag.Int("scale", compositor.DefaultScale, "pixel scale of the full frame")
	secondary = flag.Bool("secondary", false, "write the downscaled panel frame")
	debug     = flag.Bool("debug", false, "debug logging")
)

var opts snapshotOpts

func init() {
	flag.StringVar(&opts.mode, "mode", "step", "off, step, fine or btle")
	flag.IntVar(&opts.value, "value", 0, "device value")
	flag.BoolVar(&opts.locked, "locked", false, "show the lock")
	flag.BoolVar(&opts.usb, "usb", false, "usb power connected")
	flag.Float64Var(&opts.voltage, "voltage", state.InitialVoltage, "battery voltage")
	flag.StringVar(&opts.pending, "pending", "", "pending transition: btle or revert")
	flag.IntVar(&opts.countdown, "countdown", -1, "power-off countdown step, 0 to 3")
}

func main() {
	flag.Parse()

	logger := zap.NewNop()
	if *debug {
		logger, _ = zap.NewDevelopment()
	}

	if err := run(context.Background(), logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *zap.Logger) error {
	fs := afero.NewMemMapFs()
	if *assetDir != "" {
		if err := os.MkdirAll(*assetDir, 0755); err != nil {
			return err
		}
		var err error
		if fs, err = assets.NewDirFs(*assetDir); err != nil {
			return err
		}
	}

	if *seed || *assetDir == "" {
		n, err := assets.Seed(fs, compositor.AllKeys(), compositor.Placeholder, *seed)
		if err != nil {
			return err
		}
		logger.With(zap.Int("written", n)).Info("seeded")
		if *seed {
			fmt.Printf("%d placeholder assets written to %s\n", n, *assetDir)
			return nil
		}
	}

	s, err := opts.snapshot()
	if err != nil {
		return err
	}

	r := compositor.NewRenderer(compositor.New(*scale, nil), assets.NewStore(fs, assets.WithLogger(logger)))
	f, err := r.Render(ctx, s)
	if err != nil {
		return err
	}

	var img image.Image = f.Full
	if *secondary {
		img = f.Secondary
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}

	if err := os.WriteFile(*output, buf.Bytes(), 0644); err != nil {
		return err
	}
	fmt.Printf("%s: %s, %d layers\n", *output, s, len(f.Layers))

	if *export != "" {
		e, err := assets.NewExportDir(*export)
		if err != nil {
			return err
		}
		name, err := e.Write(".png", buf.Bytes())
		if err != nil {
			return err
		}
		fmt.Printf("exported %s\n", name)
	}
	return nil
}

type snapshotOpts struct {
	mode      string
	value     int
	locked    bool
	usb       bool
	voltage   float64
	pending   string
	countdown int
}

func (o snapshotOpts) snapshot() (state.Snapshot, error) {
	s := state.New()
	s.USBCharge = o.usb
	s.Voltage = o.voltage

	mode, err := state.ParseMode(o.mode)
	if err != nil {
		return s, err
	}
	s.Mode = mode

	if mode != state.Off {
		s.Power = true
		s.Locked = o.locked
		s.Value = o.value
		if mode == state.Step && !value.Contains(s.Value) {
			s.Value = value.Nearest(s.Value)
		}

		switch strings.ToLower(o.pending) {
		case "":
		case "btle":
			s.BtlePending = true
		case "revert":
			s.RevertPending = true
		default:
			return s, errors.Errorf("unknown pending transition %q", o.pending)
		}

		if o.countdown >= 0 {
			s.PoweringOff = true
			s.PoweringOffStep = o.countdown
		}
	}

	return s, s.Validate(value.Contains)
}
