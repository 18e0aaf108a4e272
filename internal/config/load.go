package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const DefaultEnvPrefix = "NDPANEL_"

type LoadOption func(l *loader)

func WithEnvPrefix(prefix string) LoadOption {
	return func(l *loader) {
		l.envPrefix = prefix
	}
}

// WithOverrides applies dotted keys on top of every other source, e.g. from
// command line flags.
func WithOverrides(m map[string]any) LoadOption {
	return func(l *loader) {
		l.overrides = m
	}
}

type loader struct {
	envPrefix string
	overrides map[string]any
}

// Load reads path (optional) and the environment over Default(). Nested
// environment keys are separated by a double underscore:
// NDPANEL_TIMING__DOUBLE_CLICK=150ms sets timing.double_click.
func Load(path string, opts ...LoadOption) (*Config, error) {
	l := &loader{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(l)
	}

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s failed: %w", path, err)
		}
	}

	prefix := l.envPrefix
	transform := func(s string) string {
		s = strings.TrimPrefix(s, prefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}
	if err := k.Load(env.Provider(prefix, ".", transform), nil); err != nil {
		return nil, fmt.Errorf("load env failed: %w", err)
	}

	if len(l.overrides) > 0 {
		if err := k.Load(mapProvider(l.overrides), nil); err != nil {
			return nil, fmt.Errorf("load overrides failed: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("map provider does not support ReadBytes")
}

// Read expands dotted keys into nested maps.
func (m mapProvider) Read() (map[string]any, error) {
	out := make(map[string]any)
	for key, v := range m {
		parts := strings.Split(key, ".")
		node := out
		for _, p := range parts[:len(parts)-1] {
			next, ok := node[p].(map[string]any)
			if !ok {
				next = make(map[string]any)
				node[p] = next
			}
			node = next
		}
		node[parts[len(parts)-1]] = v
	}
	return out, nil
}
