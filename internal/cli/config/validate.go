package config

import (
	"fmt"

	"github.com/leapstack-labs/msgcheck/internal/cli/output"
	"github.com/leapstack-labs/msgcheck/internal/engine"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if !output.IsValid(c.OutputFormat) {
		return fmt.Errorf("unknown output format %q (expected one of %v)", c.OutputFormat, output.Names())
	}
	if _, err := engine.ParseModes(c.Modes); err != nil {
		return fmt.Errorf("invalid modes: %w", err)
	}
	if c.Watch.DebounceMS < 0 {
		return fmt.Errorf("watch.debounce_ms must not be negative, got %d", c.Watch.DebounceMS)
	}
	return nil
}

// EngineModes returns the configured modes as engine modes.
func (c *Config) EngineModes() []engine.Mode {
	modes, err := engine.ParseModes(c.Modes)
	if err != nil {
		return engine.DefaultModes
	}
	return modes
}
