package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/leapstack-labs/msgcheck/internal/state"
	"github.com/leapstack-labs/msgcheck/internal/testutil"
	"github.com/leapstack-labs/msgcheck/pkg/grammar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseInput(t *testing.T, text string) *grammar.Input {
	t.Helper()
	in, err := grammar.ParseInput(strings.NewReader(text))
	require.NoError(t, err)
	return in
}

func TestNew_Defaults(t *testing.T) {
	e, err := New(Config{})
	require.NoError(t, err)

	assert.Equal(t, DefaultModes, e.Modes())
	assert.Positive(t, e.workers)
	assert.Equal(t, grammar.DefaultLoopShape, e.shape)
	assert.NotNil(t, e.logger)
}

func TestNew_InvalidMode(t *testing.T) {
	_, err := New(Config{Modes: []Mode{"fuzzy"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mode "fuzzy"`)
}

func TestValidate_Plain(t *testing.T) {
	in := parseInput(t, testutil.ExampleInput)
	e, err := New(Config{Modes: []Mode{ModePlain}, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)

	report, err := e.Validate(context.Background(), in.Rules, in.Messages)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Count(ModePlain))
	assert.Empty(t, report.RunID)
	require.Len(t, report.Results, 5)

	want := []bool{true, false, true, false, false}
	for i, r := range report.Results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, in.Messages[i], r.Message)
		assert.Equal(t, want[i], r.Matches[ModePlain], "message %q", r.Message)
	}
}

func TestValidate_BothModes(t *testing.T) {
	in := parseInput(t, testutil.LoopingInput)

	for _, workers := range []int{1, 3, 16} {
		e, err := New(Config{Workers: workers, Logger: testutil.NewTestLogger(t)})
		require.NoError(t, err)

		report, err := e.Validate(context.Background(), in.Rules, in.Messages)
		require.NoError(t, err)

		assert.Equal(t, 3, report.Count(ModePlain), "workers=%d", workers)
		assert.Equal(t, 12, report.Count(ModeLooping), "workers=%d", workers)

		// A plain match is always a looping match
		for _, r := range report.Results {
			if r.Matches[ModePlain] {
				assert.True(t, r.Matches[ModeLooping], "message %q", r.Message)
			}
		}
		assert.Equal(t, "bbabbbbaabaabba", report.Results[1].Message)
		assert.True(t, report.Results[1].Matches[ModePlain])
	}
}

func TestValidate_GrammarErrorsAbort(t *testing.T) {
	tests := []struct {
		name  string
		modes []Mode
		text  string
	}{
		{name: "undefined reference", modes: []Mode{ModePlain}, text: "0: 1 2\n1: \"a\"\n\nab\n"},
		{name: "wrong shape for looping", modes: []Mode{ModeLooping}, text: testutil.ExampleInput},
		{name: "cycle in plain mode", modes: []Mode{ModePlain}, text: "0: 1\n1: \"a\" | 1 0\n\na\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := parseInput(t, tt.text)
			e, err := New(Config{Modes: tt.modes})
			require.NoError(t, err)

			_, err = e.Validate(context.Background(), in.Rules, in.Messages)
			require.Error(t, err)
			assert.True(t, errors.Is(err, grammar.ErrMalformedGrammar), "got %v", err)
			assert.Contains(t, err.Error(), string(tt.modes[0])+" mode")
		})
	}
}

func TestValidate_EmptyBatch(t *testing.T) {
	in := parseInput(t, "0: \"a\"\n")
	e, err := New(Config{Modes: []Mode{ModePlain}})
	require.NoError(t, err)

	report, err := e.Validate(context.Background(), in.Rules, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Equal(t, 0, report.Count(ModePlain))
}

func TestValidate_Cancelled(t *testing.T) {
	in := parseInput(t, testutil.ExampleInput)
	e, err := New(Config{Modes: []Mode{ModePlain}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = e.Validate(ctx, in.Rules, in.Messages)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidate_RecordsRun(t *testing.T) {
	store := state.NewSQLiteStore()
	require.NoError(t, store.Open(":memory:"))
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate())

	in := parseInput(t, testutil.LoopingInput)
	e, err := New(Config{Store: store, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)

	report, err := e.ValidateSource(context.Background(), "looping.txt", in.Rules, in.Messages)
	require.NoError(t, err)
	require.NotEmpty(t, report.RunID)

	run, err := store.GetRun(report.RunID)
	require.NoError(t, err)
	assert.Equal(t, state.RunStatusCompleted, run.Status)
	assert.Equal(t, "looping.txt", run.Source)
	assert.Equal(t, len(in.Messages), run.MessageCount)
	assert.Equal(t, map[string]int{"plain": 3, "looping": 12}, run.Counts)

	results, err := store.GetResults(report.RunID)
	require.NoError(t, err)
	assert.Len(t, results, 2*len(in.Messages))
}

// failingStore records calls and fails SaveResults.
type failingStore struct {
	completed map[string]state.RunStatus
}

func (s *failingStore) CreateRun(source string, modes []string, n int) (*state.Run, error) {
	return &state.Run{ID: "run-1", Source: source, Modes: modes, MessageCount: n}, nil
}

func (s *failingStore) SaveResults(string, []state.Result) error {
	return errors.New("disk full")
}

func (s *failingStore) CompleteRun(id string, status state.RunStatus, _ string) error {
	s.completed[id] = status
	return nil
}

func TestValidate_StoreFailureMarksRunFailed(t *testing.T) {
	store := &failingStore{completed: make(map[string]state.RunStatus)}
	in := parseInput(t, testutil.ExampleInput)
	e, err := New(Config{Modes: []Mode{ModePlain}, Store: store})
	require.NoError(t, err)

	_, err = e.Validate(context.Background(), in.Rules, in.Messages)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record results: disk full")
	assert.Equal(t, state.RunStatusFailed, store.completed["run-1"])
}

func TestParseModes(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		want    []Mode
		wantErr bool
	}{
		{name: "empty uses defaults", input: nil, want: DefaultModes},
		{name: "single", input: []string{"looping"}, want: []Mode{ModeLooping}},
		{name: "comma separated", input: []string{"looping,plain"}, want: []Mode{ModeLooping, ModePlain}},
		{name: "case and duplicates", input: []string{"PLAIN", " plain ", "Looping"}, want: []Mode{ModePlain, ModeLooping}},
		{name: "blank entries", input: []string{"", " , "}, want: DefaultModes},
		{name: "unknown", input: []string{"plain", "strict"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseModes(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
