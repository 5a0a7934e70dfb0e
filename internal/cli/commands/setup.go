package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/msgcheck/internal/cli/config"
	"github.com/leapstack-labs/msgcheck/internal/cli/output"
	"github.com/leapstack-labs/msgcheck/internal/engine"
	"github.com/leapstack-labs/msgcheck/internal/state"
	"github.com/leapstack-labs/msgcheck/pkg/grammar"
	"github.com/spf13/cobra"
)

// stdinPath names standard input as an input file.
const stdinPath = "-"

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	// Store is only set by NewCommandContextWithStore
	Store *state.SQLiteStore
}

// NewCommandContext creates a CommandContext without a state store.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// NewCommandContextWithStore creates a CommandContext with an open, migrated
// state store. Returns the context and a cleanup function that must be called
// (typically via defer).
func NewCommandContextWithStore(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc := NewCommandContext(cmd)

	store, err := openStore(cc.Cfg.StatePath)
	if err != nil {
		return nil, nil, err
	}
	cc.Store = store

	cleanup := func() {
		if err := store.Close(); err != nil {
			cc.Logger.Warn("failed to close state store", "error", err)
		}
	}
	return cc, cleanup, nil
}

// Engine creates a validation engine from the configuration. store may be nil.
func (cc *CommandContext) Engine(store state.Store) (*engine.Engine, error) {
	return engine.New(engine.Config{
		Workers: cc.Cfg.Workers,
		Modes:   cc.Cfg.EngineModes(),
		Store:   store,
		Logger:  cc.Logger,
	})
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to defaults.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		Modes:        config.DefaultModes,
		StatePath:    config.DefaultStateFile,
		OutputFormat: config.DefaultOutput,
		Server:       config.ServerConfig{Addr: config.DefaultAddr},
		Watch:        config.WatchConfig{DebounceMS: config.DefaultDebounceMS},
	}
}

func openStore(path string) (*state.SQLiteStore, error) {
	// Ensure state directory exists
	if path != ":memory:" {
		stateDir := filepath.Dir(path)
		if stateDir != "." && stateDir != "" {
			if err := os.MkdirAll(stateDir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}

	store := state.NewSQLiteStore()
	if err := store.Open(path); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate state store: %w", err)
	}
	return store, nil
}

// inputPath picks the input: the first argument, then the configured input,
// then standard input.
func inputPath(cfg *config.Config, args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	if cfg.Input != "" {
		return cfg.Input
	}
	return stdinPath
}

// readInput parses the rules and messages at path ("-" reads stdin).
func readInput(cmd *cobra.Command, path string) (*grammar.Input, error) {
	var r io.Reader
	if path == stdinPath {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	in, err := grammar.ParseInput(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", displayPath(path), err)
	}
	return in, nil
}

func displayPath(path string) string {
	if path == stdinPath {
		return "stdin"
	}
	return path
}
