package state

import (
	"fmt"
)

// SaveResults stores per-message verdicts for a run in a single transaction.
func (s *SQLiteStore) SaveResults(runID string, results []Result) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT INTO results (run_id, idx, message, mode, matched) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range results {
		matched := 0
		if r.Matched {
			matched = 1
		}
		if _, err := stmt.Exec(runID, r.Index, r.Message, r.Mode, matched); err != nil {
			return fmt.Errorf("failed to save result %d (%s): %w", r.Index, r.Mode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}
	return nil
}

// GetResults returns the verdicts recorded for a run, ordered by message index and mode.
func (s *SQLiteStore) GetResults(runID string) ([]Result, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT run_id, idx, message, mode, matched FROM results WHERE run_id = ? ORDER BY idx, mode`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []Result
	for rows.Next() {
		var r Result
		var matched int
		if err := rows.Scan(&r.RunID, &r.Index, &r.Message, &r.Mode, &matched); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Matched = matched != 0
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get results: %w", err)
	}

	return results, nil
}
