// Package metrics exports panel state as prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"

	"ndpanel/internal/battery"
	"ndpanel/internal/compositor"
	"ndpanel/internal/state"
)

const namespace = "ndpanel"

var modes = []state.Mode{state.Off, state.Step, state.Fine, state.Btle}

func New(b *battery.Simulator) *Metrics {
	if b == nil {
		b = battery.New()
	}

	m := &Metrics{
		reg:     prometheus.NewRegistry(),
		battery: b,
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "panel",
			Name:      "changes_total",
			Help:      "Committed state changes by reason",
		}, []string{"reason"}),
		mode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "panel",
			Name:      "mode",
			Help:      "1 for the current mode, 0 otherwise",
		}, []string{"mode"}),
		value: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "panel",
			Name:      "value",
			Help:      "Current device value",
		}),
		flags: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "panel",
			Name:      "flag",
			Help:      "Boolean panel state",
		}, []string{"flag"}),
		voltage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "battery",
			Name:      "voltage_volts",
			Help:      "Simulated battery voltage",
		}),
		level: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "battery",
			Name:      "level",
			Help:      "Battery icon level, 1 to 10",
		}),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "frames_total",
			Help:      "Frames pushed to sinks",
		}),
		layers: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "layers",
			Help:      "Layers per rendered frame",
			Buckets:   prometheus.LinearBuckets(0, 1, 7),
		}),
	}

	m.reg.MustRegister(m.changes, m.mode, m.value, m.flags, m.voltage, m.level, m.frames, m.layers)
	m.set(state.New())

	return m
}

type Metrics struct {
	reg     *prometheus.Registry
	battery *battery.Simulator

	changes *prometheus.CounterVec
	mode    *prometheus.GaugeVec
	value   prometheus.Gauge
	flags   *prometheus.GaugeVec
	voltage prometheus.Gauge
	level   prometheus.Gauge
	frames  prometheus.Counter
	layers  prometheus.Histogram
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Observe records a committed change. It has the shape of fsm.Listener.
func (m *Metrics) Observe(reason string, _, next state.Snapshot) {
	m.changes.WithLabelValues(reason).Inc()
	m.set(next)
}

// Push counts a rendered frame. It has the shape of loop.Sink.
func (m *Metrics) Push(f *compositor.Frame) error {
	m.frames.Inc()
	m.layers.Observe(float64(len(f.Layers)))
	return nil
}

func (m *Metrics) set(s state.Snapshot) {
	for _, mode := range modes {
		m.mode.WithLabelValues(mode.String()).Set(lo.Ternary(mode == s.Mode, 1.0, 0.0))
	}
	m.value.Set(float64(s.Value))
	m.voltage.Set(s.Voltage)
	m.level.Set(float64(m.battery.Level(s.Voltage)))

	flags := map[string]bool{
		"power":    s.Power,
		"locked":   s.Locked,
		"mount":    s.InMount,
		"usb":      s.USBCharge,
		"pending":  s.Pending(),
		"shutdown": s.PoweringOff,
	}
	for name, on := range flags {
		m.flags.WithLabelValues(name).Set(lo.Ternary(on, 1.0, 0.0))
	}
}
