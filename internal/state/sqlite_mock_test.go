package state

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &SQLiteStore{db: db, path: "mock"}, mock
}

func TestSQLiteStore_Failures(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		run       func(s *SQLiteStore) error
		errMsg    string
	}{
		{
			name: "create run insert fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO runs").WillReturnError(assert.AnError)
			},
			run: func(s *SQLiteStore) error {
				_, err := s.CreateRun("x", []string{"plain"}, 1)
				return err
			},
			errMsg: "failed to create run",
		},
		{
			name: "complete run update fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE runs").WillReturnError(assert.AnError)
			},
			run: func(s *SQLiteStore) error {
				return s.CompleteRun("id", RunStatusCompleted, "")
			},
			errMsg: "failed to complete run",
		},
		{
			name: "complete run affects no rows",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE runs").WillReturnResult(sqlmock.NewResult(0, 0))
			},
			run: func(s *SQLiteStore) error {
				return s.CompleteRun("id", RunStatusCompleted, "")
			},
			errMsg: "run not found",
		},
		{
			name: "begin fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(assert.AnError)
			},
			run: func(s *SQLiteStore) error {
				return s.SaveResults("id", []Result{{Mode: "plain"}})
			},
			errMsg: "failed to begin transaction",
		},
		{
			name: "insert result fails and rolls back",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectPrepare("INSERT INTO results").
					ExpectExec().WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			run: func(s *SQLiteStore) error {
				return s.SaveResults("id", []Result{{Index: 4, Mode: "plain"}})
			},
			errMsg: "failed to save result 4 (plain)",
		},
		{
			name: "commit fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectPrepare("INSERT INTO results").
					ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit().WillReturnError(assert.AnError)
			},
			run: func(s *SQLiteStore) error {
				return s.SaveResults("id", []Result{{Mode: "plain", Matched: true}})
			},
			errMsg: "failed to commit results",
		},
		{
			name: "list query fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM runs").WillReturnError(assert.AnError)
			},
			run: func(s *SQLiteStore) error {
				_, err := s.ListRuns(10)
				return err
			},
			errMsg: "failed to list runs",
		},
		{
			name: "stored timestamp is corrupt",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "source", "modes", "message_count", "status", "started_at", "completed_at", "error"}).
					AddRow("id", "src", "plain", 1, "running", "yesterday", nil, nil)
				mock.ExpectQuery("SELECT (.+) FROM runs WHERE id").WithArgs("id").WillReturnRows(rows)
			},
			run: func(s *SQLiteStore) error {
				_, err := s.GetRun("id")
				return err
			},
			errMsg: "invalid timestamp",
		},
		{
			name: "results query fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM results").WillReturnError(assert.AnError)
			},
			run: func(s *SQLiteStore) error {
				_, err := s.GetResults("id")
				return err
			},
			errMsg: "failed to get results",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			tt.setupMock(mock)

			err := tt.run(store)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLiteStore_SaveResults_Empty(t *testing.T) {
	store, mock := newMockStore(t)

	// No statements are issued for an empty batch
	require.NoError(t, store.SaveResults("id", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
