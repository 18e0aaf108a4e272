package mixer

import "go.uber.org/zap"

type Option func(d *Drawer)

func WithEffect(e Effect) Option {
	return func(d *Drawer) {
		d.eff = e
	}
}

// WithCenter centers frames on the panel instead of drawing at the origin.
func WithCenter() Option {
	return func(d *Drawer) {
		d.center = true
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(d *Drawer) {
		d.logger = l
	}
}
