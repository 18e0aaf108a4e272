package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"ndpanel/internal/config"
	"ndpanel/internal/state"
	"ndpanel/pkg/device/remote"
)

var (
	addr   string
	client *remote.Client
)

func main() {
	root := &cobra.Command{
		Use:           "ndctl",
		Short:         "Drive a running ndsim over rpc",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c, err := remote.Dial(addr)
			if err != nil {
				return errors.Wrapf(err, "dial %s", addr)
			}
			client = c
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return client.Close()
		},
	}
	root.PersistentFlags().StringVarP(&addr, "addr", "a", config.DefaultRPCListen, "ndsim rpc address")

	root.AddCommand(
		simple("down", "Press the button", func() error { return client.ButtonDown() }),
		simple("up", "Release the button", func() error { return client.ButtonUp() }),
		clickCmd(),
		holdCmd(),
		simple("dclick", "Double click", func() error { return client.Click(remote.ClickRequest{Count: 2}) }),
		wheelCmd("wheel", state.Primary),
		wheelCmd("btle", state.Secondary),
		toggleCmd("mount", "Put the device in or out of its mount", func(s state.Snapshot) bool { return s.InMount }, (*remote.Client).SetMount),
		toggleCmd("usb", "Plug or unplug usb power", func(s state.Snapshot) bool { return s.USBCharge }, (*remote.Client).SetCharge),
		voltCmd(),
		stateCmd(),
		frameCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func simple(use, short string, fn func() error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return fn()
		},
	}
}

func clickCmd() *cobra.Command {
	var hold, gap time.Duration
	cmd := &cobra.Command{
		Use:   "click [count]",
		Short: "Short press the button count times",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			n := 1
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil || v < 1 {
					return errors.Errorf("invalid count %q", args[0])
				}
				n = v
			}
			return client.Click(remote.ClickRequest{Hold: hold, Count: n, Gap: gap})
		},
	}
	cmd.Flags().DurationVar(&hold, "hold", remote.DefaultHold, "press length")
	cmd.Flags().DurationVar(&gap, "gap", remote.DefaultGap, "pause between presses")
	return cmd
}

func holdCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "hold <duration>",
		Short:   "Hold the button, e.g. hold 1.5s",
		Args:    cobra.ExactArgs(1),
		Example: "  ndctl hold 1s    # lock or unlock\n  ndctl hold 4s    # power off",
		RunE: func(_ *cobra.Command, args []string) error {
			d, err := time.ParseDuration(args[0])
			if err != nil || d <= 0 {
				return errors.Errorf("invalid duration %q", args[0])
			}
			return client.Click(remote.ClickRequest{Hold: d, Count: 1})
		},
	}
}

func wheelCmd(use string, w state.Wheel) *cobra.Command {
	return &cobra.Command{
		Use:       use + " <up|down> [ticks]",
		Short:     fmt.Sprintf("Turn the %s wheel", w),
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"up", "down"},
		RunE: func(_ *cobra.Command, args []string) error {
			ticks := 1
			if len(args) == 2 {
				v, err := strconv.Atoi(args[1])
				if err != nil || v < 1 {
					return errors.Errorf("invalid ticks %q", args[1])
				}
				ticks = v
			}

			var delta int
			switch args[0] {
			case "up":
				delta = -ticks
			case "down":
				delta = ticks
			default:
				return errors.Errorf("invalid direction %q", args[0])
			}

			if err := client.Rotate(w, delta); err != nil {
				return err
			}
			return printState()
		},
	}
}

func toggleCmd(use, short string, get func(state.Snapshot) bool, set func(c *remote.Client, on bool) error) *cobra.Command {
	return &cobra.Command{
		Use:       use + " [on|off]",
		Short:     short,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(_ *cobra.Command, args []string) error {
			var on bool
			if len(args) == 0 {
				s, err := client.State()
				if err != nil {
					return err
				}
				on = !get(s.Snapshot)
			} else {
				switch strings.ToLower(args[0]) {
				case "on":
					on = true
				case "off":
				default:
					return errors.Errorf("invalid switch %q", args[0])
				}
			}
			if err := set(client, on); err != nil {
				return err
			}
			return printState()
		},
	}
}

func voltCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "volt <voltage>",
		Short: "Override the battery voltage",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			v, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return errors.Errorf("invalid voltage %q", args[0])
			}
			if err := client.SetVoltage(v); err != nil {
				return err
			}
			return printState()
		},
	}
}

func stateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the panel state",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return printState()
		},
	}
}

func frameCmd() *cobra.Command {
	var out string
	var secondary bool
	cmd := &cobra.Command{
		Use:   "frame",
		Short: "Save the current frame as png",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			bs, err := client.Frame(secondary)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, bs, 0644); err != nil {
				return err
			}
			fmt.Printf("%s: %d bytes\n", out, len(bs))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "frame.png", "output file")
	cmd.Flags().BoolVar(&secondary, "secondary", false, "save the downscaled panel frame")
	return cmd
}

func printState() error {
	st, err := client.State()
	if err != nil {
		return err
	}
	fmt.Print(describe(st))
	return nil
}

func describe(st *remote.State) string {
	s := st.Snapshot
	var b strings.Builder
	fmt.Fprintf(&b, "mode:     %s\n", s.Mode)
	fmt.Fprintf(&b, "power:    %t\n", s.Power)
	fmt.Fprintf(&b, "value:    %d (ND %.1f +%d)\n", s.Value, st.Major, st.Minor)
	fmt.Fprintf(&b, "locked:   %t\n", s.Locked)
	fmt.Fprintf(&b, "mount:    %t\n", s.InMount)
	fmt.Fprintf(&b, "usb:      %t\n", s.USBCharge)
	fmt.Fprintf(&b, "battery:  %.2fV %.0f%% level %d\n", s.Voltage, st.SoC, st.Level)
	switch {
	case s.BtlePending:
		fmt.Fprintf(&b, "pending:  %s\n", state.Btle)
	case s.RevertPending:
		fmt.Fprintf(&b, "pending:  %s\n", s.LastMode)
	}
	if step, ok := s.Countdown(); ok {
		fmt.Fprintf(&b, "shutdown: %d\n", step)
	}
	return b.String()
}
