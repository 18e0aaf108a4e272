package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"ndpanel/internal/compositor"
	"ndpanel/internal/config"
	"ndpanel/internal/loop"
	"ndpanel/internal/metrics"
	"ndpanel/pkg/assets"
	"ndpanel/pkg/bot"
	"ndpanel/pkg/device/remote"
	"ndpanel/pkg/proto"
)

// Module runs a panel simulator for cfg: the event loop, the configured
// display, the rpc server and, when a token is set, the telegram bot.
func Module(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(
			provideLogger,
			provideMetrics,
			provideStore,
			Renderer,
			provideDisplay,
			provideLoop,
			func(l *loop.Loop) loop.Controller { return l },
			provideServer,
		),
		fx.Invoke(
			remote.Serve,
			runBot,
		),
	)
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return cfg.Log.Logger()
}

func provideMetrics(cfg *config.Config) *metrics.Metrics {
	return metrics.New(cfg.Simulator())
}

func provideStore(cfg *config.Config, logger *zap.Logger) (*assets.Store, error) {
	return Store(context.Background(), cfg, logger)
}

func provideDisplay(lifecycle fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (proto.Control, error) {
	dev, err := Display(cfg, logger)
	if err != nil || dev == nil {
		return nil, err
	}

	lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return dev.Shutdown()
		},
	})
	return dev, nil
}

func provideLoop(lifecycle fx.Lifecycle, cfg *config.Config, r *compositor.Renderer, m *metrics.Metrics, dev proto.Control, logger *zap.Logger) (*loop.Loop, error) {
	export, err := ExportSink(cfg.Render.Export, logger)
	if err != nil {
		return nil, err
	}

	var panel loop.Sink
	if dev != nil {
		panel = PanelSink(cfg, dev, logger)
	}

	l := Loop(cfg, r, m, logger, panel, export)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() { done <- l.Run(ctx) }()
			return nil
		},
		OnStop: func(stop context.Context) error {
			cancel()
			select {
			case err := <-done:
				return err
			case <-stop.Done():
				return stop.Err()
			}
		},
	})
	return l, nil
}

func provideServer(cfg *config.Config, ctrl loop.Controller, dev proto.Control, m *metrics.Metrics, logger *zap.Logger) (*remote.Server, error) {
	return remote.NewServer(cfg.RPC.Listen, ctrl,
		remote.WithDisplay(dev),
		remote.WithMetrics(m.Handler()),
		remote.WithLogger(logger),
		remote.WithBattery(cfg.Simulator()),
	)
}

func runBot(lifecycle fx.Lifecycle, cfg *config.Config, ctrl loop.Controller, logger *zap.Logger) error {
	if cfg.Bot.Token == "" {
		return nil
	}

	b, err := bot.New(cfg.Bot.Token, ctrl,
		bot.WithAdmins(cfg.Bot.Admins...),
		bot.WithLogger(logger),
		bot.WithBattery(cfg.Simulator()),
	)
	if err != nil {
		return err
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			b.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			b.Stop()
			return nil
		},
	})
	return nil
}
