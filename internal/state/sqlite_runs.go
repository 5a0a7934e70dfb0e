package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const runColumns = `id, source, modes, message_count, status, started_at, completed_at, error`

// CreateRun records the start of a validation run.
func (s *SQLiteStore) CreateRun(source string, modes []string, messageCount int) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{
		ID:           generateID(),
		Source:       source,
		Modes:        modes,
		MessageCount: messageCount,
		Status:       RunStatusRunning,
		StartedAt:    time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO runs (id, source, modes, message_count, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, joinModes(run.Modes), run.MessageCount, string(run.Status), formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, nil
}

// CompleteRun marks a run as finished with the given status.
func (s *SQLiteStore) CompleteRun(id string, status RunStatus, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var errorPtr *string
	if errMsg != "" {
		errorPtr = &errMsg
	}

	result, err := s.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), formatTime(time.Now()), errorPtr, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("run not found: %s", id)
	}

	return nil
}

// GetRun retrieves a run by ID, including its per-mode match counts.
func (s *SQLiteStore) GetRun(id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if err := s.loadCounts(run); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
// A limit of zero or less returns every run.
func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	_ = rows.Close()

	// Counts are loaded after rows is closed; in-memory stores hold a single connection
	for _, run := range runs {
		if err := s.loadCounts(run); err != nil {
			return nil, err
		}
	}

	return runs, nil
}

func (s *SQLiteStore) loadCounts(run *Run) error {
	run.Counts = make(map[string]int, len(run.Modes))
	for _, mode := range run.Modes {
		run.Counts[mode] = 0
	}

	rows, err := s.db.Query(
		`SELECT mode, SUM(matched) FROM results WHERE run_id = ? GROUP BY mode`,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to count results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var mode string
		var count int
		if err := rows.Scan(&mode, &count); err != nil {
			return fmt.Errorf("failed to scan result count: %w", err)
		}
		run.Counts[mode] = count
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var modes, status, startedAt string
	var completedAt, errMsg sql.NullString

	if err := row.Scan(&run.ID, &run.Source, &modes, &run.MessageCount, &status, &startedAt, &completedAt, &errMsg); err != nil {
		return nil, err
	}

	run.Modes = splitModes(modes)
	run.Status = RunStatus(status)

	var err error
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		run.CompletedAt = &t
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}

	return run, nil
}
