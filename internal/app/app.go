// Package app wires a configured panel: asset store, renderer, display,
// frame sinks and the event loop.
package app

import (
	"bytes"
	"context"
	"image"
	"image/png"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"ndpanel/internal/compositor"
	"ndpanel/internal/config"
	"ndpanel/internal/fsm"
	"ndpanel/internal/loop"
	"ndpanel/internal/metrics"
	"ndpanel/pkg/assets"
	"ndpanel/pkg/device/inch35"
	"ndpanel/pkg/device/remote"
	"ndpanel/pkg/device/virtual"
	"ndpanel/pkg/mixer"
	"ndpanel/pkg/proto"
)

// Store opens the asset store. When the asset dir is unset or missing, the
// store serves generated placeholder bitmaps from memory.
func Store(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*assets.Store, error) {
	fs, err := assetFs(cfg.Assets.Dir, logger)
	if err != nil {
		return nil, err
	}

	opts := []assets.Option{
		assets.WithBaseURL(cfg.Assets.URL),
		assets.WithLogger(logger),
	}
	if cfg.Assets.WriteBack {
		opts = append(opts, assets.WithWriteBack())
	}
	store := assets.NewStore(fs, opts...)

	if cfg.Assets.Preload {
		if err := store.Preload(ctx, compositor.AllKeys(), false); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func assetFs(dir string, logger *zap.Logger) (afero.Fs, error) {
	if dir != "" {
		if exists, _ := afero.DirExists(afero.NewOsFs(), dir); exists {
			return assets.NewDirFs(dir)
		}
	}

	fs := afero.NewMemMapFs()
	n, err := assets.Seed(fs, compositor.AllKeys(), compositor.Placeholder, false)
	if err != nil {
		return nil, err
	}
	logger.With(zap.String("dir", dir), zap.Int("assets", n)).Warn("asset dir missing, using placeholders")
	return fs, nil
}

func Renderer(cfg *config.Config, store *assets.Store) *compositor.Renderer {
	return compositor.NewRenderer(
		compositor.New(cfg.Render.Scale, cfg.Simulator()),
		store,
		compositor.WithSecondary(image.Pt(cfg.Render.SecondaryWidth, cfg.Render.SecondaryHeight)),
	)
}

// Display opens and starts the configured panel, or returns nil for none.
func Display(cfg *config.Config, logger *zap.Logger) (proto.Control, error) {
	var dev proto.Control
	switch cfg.Panel.Driver {
	case config.DriverNone:
		return nil, nil
	case config.DriverVirtual:
		dev = virtual.New(inch35.Width, inch35.Height, logger)
	case config.DriverInch35:
		d, err := inch35.Open(proto.NewSerial(cfg.Panel.Port), logger)
		if err != nil {
			return nil, err
		}
		dev = d
	case config.DriverRemote:
		c, err := remote.Dial(cfg.Panel.Port)
		if err != nil {
			return nil, err
		}
		if dev, err = c.Display(); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("unknown panel driver %q", cfg.Panel.Driver)
	}

	if err := dev.Startup(); err != nil {
		return nil, errors.Wrap(err, "panel startup")
	}
	if err := dev.SetLight(cfg.Panel.Light); err != nil {
		return nil, errors.Wrap(err, "panel light")
	}
	if err := dev.SetRotate(cfg.Panel.Landscape, cfg.Panel.Invert); err != nil {
		return nil, errors.Wrap(err, "panel rotate")
	}
	return dev, nil
}

// PanelSink pushes secondary frames to dev.
func PanelSink(cfg *config.Config, dev proto.Control, logger *zap.Logger) loop.Sink {
	eff := mixer.EffectFull()
	if cfg.Panel.Strategy == config.StrategyBlock {
		eff = mixer.EffectBlock(cfg.Panel.Block)
	}
	d := mixer.NewDrawer(dev, mixer.WithEffect(eff), mixer.WithCenter(), mixer.WithLogger(logger))
	return loop.SinkFunc(func(f *compositor.Frame) error {
		return d.Canvas(f.Secondary)
	})
}

// ExportSink writes every full frame as PNG into dir.
func ExportSink(dir string, logger *zap.Logger) (loop.Sink, error) {
	e, err := assets.NewExportDir(dir)
	if err != nil {
		return nil, err
	}
	if !e.Enabled() {
		return nil, nil
	}

	return loop.SinkFunc(func(f *compositor.Frame) error {
		var buf bytes.Buffer
		if err := png.Encode(&buf, f.Full); err != nil {
			return err
		}
		name, err := e.Write(".png", buf.Bytes())
		if err != nil {
			return err
		}
		logger.With(zap.String("file", name)).Debug("exported")
		return nil
	}), nil
}

// Loop builds the event loop for cfg. Nil sinks are skipped.
func Loop(cfg *config.Config, r *compositor.Renderer, m *metrics.Metrics, logger *zap.Logger, sinks ...loop.Sink) *loop.Loop {
	var live []loop.Sink
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	if m != nil {
		live = append(live, m)
	}

	l := loop.New(r,
		loop.WithLogger(logger),
		loop.WithRefresh(cfg.Loop.Refresh),
		loop.WithBatteryTick(cfg.Battery.Tick),
		loop.WithSink(live...),
		loop.WithMachine(
			fsm.WithTiming(cfg.Timing),
			fsm.WithBattery(cfg.Simulator()),
			fsm.WithSnapshot(cfg.Snapshot()),
		),
	)
	if m != nil {
		l.OnChange(m.Observe)
	}
	return l
}
