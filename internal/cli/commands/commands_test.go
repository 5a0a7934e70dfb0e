// Package commands_test provides tests for CLI command creation.
package commands

import (
	"testing"

	"github.com/leapstack-labs/msgcheck/internal/cli/config"
	"github.com/stretchr/testify/assert"
)

func TestNewCheckCommand(t *testing.T) {
	cmd := NewCheckCommand()

	assert.Equal(t, "check [file|-]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	// --mode and --output are global flags on root, not local
	flags := []string{"list", "record"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewRulesCommand(t *testing.T) {
	cmd := NewRulesCommand()

	assert.Equal(t, "rules [file|-]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("looping"))
	assert.NotNil(t, cmd.Flags().Lookup("root"))
}

func TestNewREPLCommand(t *testing.T) {
	cmd := NewREPLCommand()

	assert.Equal(t, "repl [file]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
}

func TestNewWatchCommand(t *testing.T) {
	cmd := NewWatchCommand()

	assert.Equal(t, "watch [file]", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("list"))
	assert.NotNil(t, cmd.Flags().Lookup("debounce"))
}

func TestNewServeCommand(t *testing.T) {
	cmd := NewServeCommand()

	assert.Equal(t, "serve [file]", cmd.Use)
	flags := []string{"addr", "reload", "record"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.Equal(t, "127.0.0.1:8080", cmd.Flags().Lookup("addr").DefValue)
}

func TestNewHistoryCommand(t *testing.T) {
	cmd := NewHistoryCommand()

	assert.Equal(t, "history [run-id]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.Equal(t, "20", cmd.Flags().Lookup("limit").DefValue)
}

func TestInputPath(t *testing.T) {
	cfg := &config.Config{}

	assert.Equal(t, "a.txt", inputPath(cfg, []string{"a.txt"}))
	assert.Equal(t, stdinPath, inputPath(cfg, nil))

	withInput := *cfg
	withInput.Input = "configured.txt"
	assert.Equal(t, "configured.txt", inputPath(&withInput, nil))
	assert.Equal(t, "-", inputPath(&withInput, []string{"-"}))
}
