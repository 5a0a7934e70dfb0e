// Package state records validation runs and their per-message verdicts in SQLite.
package state

import "time"

// RunStatus is the lifecycle state of a validation run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one batch validation of a message set against a grammar.
type Run struct {
	ID           string
	Source       string
	Modes        []string
	MessageCount int
	Status       RunStatus
	StartedAt    time.Time
	CompletedAt  *time.Time
	Error        string
	// Counts holds the number of matching messages per mode. It is only
	// populated by ListRuns and GetRun.
	Counts map[string]int
}

// Result is the verdict for one message under one mode.
type Result struct {
	RunID   string
	Index   int
	Message string
	Mode    string
	Matched bool
}

// Store is the persistence surface used by the validation engine.
type Store interface {
	CreateRun(source string, modes []string, messageCount int) (*Run, error)
	SaveResults(runID string, results []Result) error
	CompleteRun(id string, status RunStatus, errMsg string) error
}

var _ Store = (*SQLiteStore)(nil)
