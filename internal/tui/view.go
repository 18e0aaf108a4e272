package tui

import (
	"fmt"
	"image"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"ndpanel/internal/compositor"
	"ndpanel/internal/value"
)

var (
	ColorAccent = lipgloss.Color("#FFB000")
	ColorDim    = lipgloss.Color("#666666")
	ColorError  = lipgloss.Color("#FF3300")

	StylePanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorDim)

	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorDim).
			Width(9)

	StyleHelp = lipgloss.NewStyle().
			Foreground(ColorDim)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError)
)

const help = "space press/release · enter click · ↑↓ wheel · [ ] btle · m mount · u usb · +/- volt · q quit"

func (m Model) View() string {
	screen := "waiting for frame..."
	if m.frame != nil {
		screen = HalfBlocks(compositor.Downscale(m.frame.Full, image.Pt(compositor.Width, compositor.Height)))
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		StylePanel.Render(screen),
		StylePanel.Padding(0, 1).Render(m.status()),
	)

	out := []string{body, StyleHelp.Render(help)}
	if m.err != nil {
		out = append(out, StyleError.Render(m.err.Error()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, out...)
}

func (m Model) status() string {
	s := m.snap
	row := func(label, v string) string {
		return StyleLabel.Render(label) + v
	}

	lines := []string{
		StyleTitle.Render("ND panel"),
		"",
		row("mode", s.Mode.String()),
		row("power", onOff(s.Power)),
		row("value", fmt.Sprintf("%d (ND %.1f +%d)", s.Value, value.Major(s.Value), value.Minor(s.Value))),
		row("locked", onOff(s.Locked)),
		row("mount", onOff(s.InMount)),
		row("usb", onOff(s.USBCharge)),
		row("battery", fmt.Sprintf("%.2fV %.0f%% %d/10", s.Voltage, m.battery.SoC(s.Voltage), m.battery.Level(s.Voltage))),
		row("button", lo.Ternary(m.pressed, "down", "up")),
	}
	if s.Pending() {
		lines = append(lines, row("pending", lo.Ternary(s.BtlePending, "btle", "revert")))
	}
	if step, ok := s.Countdown(); ok {
		lines = append(lines, row("shutdown", fmt.Sprint(step)))
	}
	return strings.Join(lines, "\n")
}

// HalfBlocks draws img with one upper half block per two pixel rows.
func HalfBlocks(img image.Image) string {
	b := img.Bounds()
	var sb strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		if y > b.Min.Y {
			sb.WriteByte('\n')
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			style := lipgloss.NewStyle().Foreground(hex(img, x, y))
			if y+1 < b.Max.Y {
				style = style.Background(hex(img, x, y+1))
			}
			sb.WriteString(style.Render("▀"))
		}
	}
	return sb.String()
}

func hex(img image.Image, x, y int) lipgloss.Color {
	r, g, b, _ := img.At(x, y).RGBA()
	return lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", r>>8, g>>8, b>>8))
}

func onOff(v bool) string {
	return lo.Ternary(v, "on", "off")
}
