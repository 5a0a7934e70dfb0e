// Package config loads msgcheck configuration from defaults, msgcheck.yaml,
// MSGCHECK_* environment variables and command-line flags.
package config

import "time"

// Config holds all CLI configuration options.
type Config struct {
	// Input is the default input file for commands given no argument
	Input        string       `koanf:"input"`
	Modes        []string     `koanf:"modes"`
	Workers      int          `koanf:"workers"`
	StatePath    string       `koanf:"state_path"`
	Record       bool         `koanf:"record"`
	OutputFormat string       `koanf:"output"`
	Verbose      bool         `koanf:"verbose"`
	Server       ServerConfig `koanf:"server"`
	Watch        WatchConfig  `koanf:"watch"`

	// ProjectRoot is the directory relative paths are resolved against
	ProjectRoot string `koanf:"-"`
}

// ServerConfig holds configuration for the HTTP API.
type ServerConfig struct {
	Addr string `koanf:"addr"`
	// Reload re-reads the grammar when the input file changes
	Reload bool `koanf:"reload"`
}

// WatchConfig holds configuration for file watching.
type WatchConfig struct {
	DebounceMS int `koanf:"debounce_ms"`
}

// Debounce returns the debounce period as a duration.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

// Default configuration values.
const (
	DefaultStateFile  = ".msgcheck/state.db"
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultAddr       = "127.0.0.1:8080"
	DefaultDebounceMS = 100
	ConfigFileName    = "msgcheck.yaml"
	EnvPrefix         = "MSGCHECK_"
)

// DefaultModes are validated when neither config nor flags name any.
var DefaultModes = []string{"plain", "looping"}
