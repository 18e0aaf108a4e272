package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"go.uber.org/fx"

	"ndpanel/internal/app"
	"ndpanel/internal/config"
)

var (
	cfgFile  = flag.StringP("config", "c", "", "config file (yaml)")
	listen   = flag.String("listen", "", "rpc listen addr")
	driver   = flag.String("panel", "", "panel driver: none, virtual, inch35, remote")
	port     = flag.String("port", "", "serial name or remote addr of the panel")
	assetDir = flag.String("assets", "", "asset dir")
	export   = flag.String("export", "", "dump every frame as png into dir")
	token    = flag.String("bot-token", "", "telegram bot token")
	mount    = flag.Bool("mount", false, "boot mounted")
	usb      = flag.Bool("usb", false, "boot with usb power")
	debug    = flag.Bool("debug", false, "debug logging")
)

func main() {
	flag.Parse()

	overrides := map[string]any{}
	set := func(name, key string, v any) {
		if flag.CommandLine.Changed(name) {
			overrides[key] = v
		}
	}
	set("listen", "rpc.listen", *listen)
	set("panel", "panel.driver", *driver)
	set("port", "panel.port", *port)
	set("assets", "assets.dir", *assetDir)
	set("export", "render.export", *export)
	set("bot-token", "bot.token", *token)
	set("mount", "start.mount", *mount)
	set("usb", "start.usb", *usb)
	if *debug {
		overrides["log.level"] = "debug"
		overrides["log.development"] = true
	}

	cfg, err := config.Load(*cfgFile, config.WithOverrides(overrides))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fx.New(
		app.Module(cfg),
		fx.NopLogger,
	).Run()
}
