// Package cliconfig handles YAML config file loading for the policyrt CLI.
package cliconfig

import (
	"fmt"
	"time"
)

// Config represents a policyrt.yaml configuration file. All values are
// optional. Catalog selects the catalog-backed builder, Policy sets the
// logger's context fields, and Adapter selects the lifecycle adapter.
// Debug is decoded but no command reads it; it does not change the
// default of `session render --mode`.
type Config struct {
	Catalog string         `yaml:"catalog"`
	Debug   string         `yaml:"debug"`
	Policy  PolicyDefaults `yaml:"policy"`
	Adapter AdapterConfig  `yaml:"adapter"`
}

// PolicyDefaults holds policy session defaults from the config file.
type PolicyDefaults struct {
	ID      string `yaml:"id"`
	Session string `yaml:"session"`
}

// AdapterConfig holds lifecycle-event adapter defaults from the config
// file. Type selects which adapter the CLI wires up ("redis", "webhook",
// or empty for none).
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
