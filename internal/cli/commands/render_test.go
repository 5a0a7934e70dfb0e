package commands

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/leapstack-labs/msgcheck/internal/cli/testutil"
	"github.com/leapstack-labs/msgcheck/internal/engine"
	"github.com/leapstack-labs/msgcheck/internal/state"
	"github.com/leapstack-labs/msgcheck/pkg/grammar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *engine.Report {
	return &engine.Report{
		RunID:  "run-1",
		Source: "input.txt",
		Modes:  []engine.Mode{engine.ModePlain, engine.ModeLooping},
		Results: []engine.Result{
			{Index: 0, Message: "ababbb", Matches: map[engine.Mode]bool{engine.ModePlain: true, engine.ModeLooping: true}},
			{Index: 1, Message: "bababa", Matches: map[engine.Mode]bool{engine.ModePlain: false, engine.ModeLooping: true}},
		},
		Counts: map[engine.Mode]int{engine.ModePlain: 1, engine.ModeLooping: 2},
	}
}

func TestRenderReport_Markdown(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()

	require.NoError(t, renderReport(tr.Renderer, sampleReport(), true))

	out := tr.Output()
	testutil.AssertNoANSI(t, out)
	testutil.AssertValidMarkdown(t, out)
	assert.Contains(t, out, "# Validation: input.txt")
	assert.Contains(t, out, "- **Run:** run-1")
	assert.Contains(t, out, "| Plain | 1 |")
	assert.Contains(t, out, "| Looping | 2 |")
	assert.Contains(t, out, "| 2 | bababa | no | yes |")
}

func TestRenderReport_CountsOnly(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()

	require.NoError(t, renderReport(tr.Renderer, sampleReport(), false))

	assert.NotContains(t, tr.Output(), "ababbb")
}

func TestRenderReport_JSON(t *testing.T) {
	tr := testutil.NewTestRendererJSON()

	require.NoError(t, renderReport(tr.Renderer, sampleReport(), true))

	var got checkReport
	require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, []string{"plain", "looping"}, got.Modes)
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, map[string]int{"plain": 1, "looping": 2}, got.Counts)
	require.Len(t, got.Messages, 2)
	assert.False(t, got.Messages[1].Matches["plain"])
}

func TestRenderReport_Text(t *testing.T) {
	tr := testutil.NewTestRendererText()

	require.NoError(t, renderReport(tr.Renderer, sampleReport(), true))

	out := tr.Output()
	assert.Contains(t, out, "Validation: input.txt")
	assert.Contains(t, out, "bababa")
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "✗")
}

func TestRulesText(t *testing.T) {
	rs, err := grammar.ParseRuleSet("0: 4 1\n1: 4 | 5\n4: \"a\"\n5: \"b\"\n9: 4")
	require.NoError(t, err)
	sum, err := grammar.Describe(rs, 0)
	require.NoError(t, err)

	tr := testutil.NewTestRendererMarkdown()
	rulesText(tr.Renderer, sum)

	out := tr.Output()
	assert.Contains(t, out, "# Rules (5 total)")
	assert.Contains(t, out, "| 0 | 4 1 | 3 | yes |")
	assert.Contains(t, out, `| 4 | "a" | 1 | yes |`)
	assert.Contains(t, tr.ErrorOutput(), "unreachable from rule 0: 9")

	// Referenced rules are listed before the rules that use them
	assert.Less(t, strings.Index(out, "| 4 |"), strings.Index(out, "| 0 |"))
}

func TestRulesText_Cycle(t *testing.T) {
	rs, err := grammar.ParseRuleSet("0: 8\n8: 42 | 42 8\n42: \"a\"")
	require.NoError(t, err)
	sum, err := grammar.Describe(rs, 0)
	require.NoError(t, err)

	tr := testutil.NewTestRendererMarkdown()
	rulesText(tr.Renderer, sum)

	// go-pretty escapes pipes inside markdown cells
	assert.Contains(t, tr.Output(), `| 8 | 42 \| 42 8 | - | yes |`)
	assert.Contains(t, tr.ErrorOutput(), "cycle reachable from rule 0: 8 -> 8")
}

func TestHistoryText(t *testing.T) {
	done := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	runs := []*state.Run{
		{
			ID:           "run-2",
			Source:       "input.txt",
			Modes:        []string{"plain", "looping"},
			MessageCount: 15,
			Status:       state.RunStatusCompleted,
			StartedAt:    done,
			CompletedAt:  &done,
			Counts:       map[string]int{"plain": 3, "looping": 12},
		},
	}

	tr := testutil.NewTestRendererMarkdown()
	historyText(tr.Renderer, runs)

	out := tr.Output()
	assert.Contains(t, out, "# Runs (1 shown)")
	assert.Contains(t, out, "run-2")
	assert.Contains(t, out, "plain=3 looping=12")
	assert.Contains(t, out, "completed")
}

func TestHistoryText_Empty(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()
	historyText(tr.Renderer, nil)

	assert.Contains(t, tr.Output(), "No runs recorded")
}
