package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ndpanel/internal/app"
	"ndpanel/internal/config"
	"ndpanel/internal/loop"
	"ndpanel/internal/tui"
)

var (
	flagConfig string
	flagAssets string
	flagPanel  string
	flagMount  bool
	flagLog    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ndtui",
		Short: "ND filter panel simulator in the terminal",
		Long: `ndtui runs the panel simulator in-process and draws the 32x64 display
with half block characters. Frames can be mirrored to a physical or
virtual panel with --panel.`,
		SilenceUsage: true,
		RunE:         run,
	}

	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "config file (yaml)")
	rootCmd.Flags().StringVar(&flagAssets, "assets", "", "asset dir, placeholders when missing")
	rootCmd.Flags().StringVar(&flagPanel, "panel", "", "mirror frames to panel driver")
	rootCmd.Flags().BoolVar(&flagMount, "mount", true, "boot mounted")
	rootCmd.Flags().StringVar(&flagLog, "log", "", "write logs to this file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	overrides := map[string]any{"start.mount": flagMount}
	if cmd.Flags().Changed("assets") {
		overrides["assets.dir"] = flagAssets
	}
	if cmd.Flags().Changed("panel") {
		overrides["panel.driver"] = flagPanel
	}

	cfg, err := config.Load(flagConfig, config.WithOverrides(overrides))
	if err != nil {
		return err
	}

	logger := zap.NewNop()
	if flagLog != "" {
		zc := zap.NewDevelopmentConfig()
		zc.OutputPaths = []string{flagLog}
		zc.ErrorOutputPaths = []string{flagLog}
		if logger, err = zc.Build(); err != nil {
			return err
		}
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	store, err := app.Store(ctx, cfg, logger)
	if err != nil {
		return err
	}
	dev, err := app.Display(cfg, logger)
	if err != nil {
		return err
	}
	if dev != nil {
		defer dev.Shutdown()
	}

	var panel loop.Sink
	if dev != nil {
		panel = app.PanelSink(cfg, dev, logger)
	}
	fwd := &tui.Forwarder{}
	l := app.Loop(cfg, app.Renderer(cfg, store), nil, logger, fwd, panel)

	p := tea.NewProgram(tui.New(l, cfg.Simulator()), tea.WithAltScreen())
	fwd.Attach(p)

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	_, err = p.Run()
	cancel()
	if lerr := <-done; err == nil {
		err = lerr
	}
	return err
}
