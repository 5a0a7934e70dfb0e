package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/msgcheck/internal/cli/output"
	"github.com/leapstack-labs/msgcheck/internal/state"
	"github.com/spf13/cobra"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded validation runs",
		Long: `List validation runs recorded with --record, newest first.

Given a run id, show that run and the verdict of each of its messages.`,
		Example: `  # Last 20 runs
  msgcheck history

  # One run with its messages, as JSON
  msgcheck history 3f2c... -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, args, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "Maximum number of runs to list (0 for all)")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string, opts *HistoryOptions) error {
	cc, cleanup, err := NewCommandContextWithStore(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if len(args) == 1 {
		return showRun(cc, args[0])
	}

	runs, err := cc.Store.ListRuns(opts.Limit)
	if err != nil {
		return err
	}

	r := cc.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON, output.ModeYAML:
		return r.Data(newRunViews(runs))
	default:
		historyText(r, runs)
		return nil
	}
}

// runView is the machine-readable form of a recorded run.
type runView struct {
	ID           string         `json:"id" yaml:"id"`
	Source       string         `json:"source" yaml:"source"`
	Modes        []string       `json:"modes" yaml:"modes"`
	MessageCount int            `json:"message_count" yaml:"message_count"`
	Status       string         `json:"status" yaml:"status"`
	StartedAt    time.Time      `json:"started_at" yaml:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Error        string         `json:"error,omitempty" yaml:"error,omitempty"`
	Counts       map[string]int `json:"counts" yaml:"counts"`
	Results      []resultView   `json:"results,omitempty" yaml:"results,omitempty"`
}

type resultView struct {
	Index   int    `json:"index" yaml:"index"`
	Message string `json:"message" yaml:"message"`
	Mode    string `json:"mode" yaml:"mode"`
	Matched bool   `json:"matched" yaml:"matched"`
}

func newRunView(run *state.Run) runView {
	return runView{
		ID:           run.ID,
		Source:       run.Source,
		Modes:        run.Modes,
		MessageCount: run.MessageCount,
		Status:       string(run.Status),
		StartedAt:    run.StartedAt,
		CompletedAt:  run.CompletedAt,
		Error:        run.Error,
		Counts:       run.Counts,
	}
}

func newRunViews(runs []*state.Run) []runView {
	views := make([]runView, 0, len(runs))
	for _, run := range runs {
		views = append(views, newRunView(run))
	}
	return views
}

func historyText(r *output.Renderer, runs []*state.Run) {
	r.Header(1, fmt.Sprintf("Runs (%d shown)", len(runs)))
	if len(runs) == 0 {
		r.Println(r.Muted("No runs recorded. Use check --record to record one."))
		return
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			run.Source,
			strconv.Itoa(run.MessageCount),
			formatCounts(run),
			string(run.Status),
		})
	}
	r.Table([]string{"Run", "Started", "Source", "Messages", "Matched", "Status"}, rows)
}

func showRun(cc *CommandContext, id string) error {
	run, err := cc.Store.GetRun(id)
	if err != nil {
		return err
	}
	results, err := cc.Store.GetResults(id)
	if err != nil {
		return err
	}

	r := cc.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON, output.ModeYAML:
		view := newRunView(run)
		for _, res := range results {
			view.Results = append(view.Results, resultView{
				Index:   res.Index,
				Message: res.Message,
				Mode:    res.Mode,
				Matched: res.Matched,
			})
		}
		return r.Data(view)
	}

	r.Header(1, "Run "+run.ID)
	r.KeyValue("Source", run.Source)
	r.KeyValue("Status", string(run.Status))
	r.KeyValue("Started", run.StartedAt.Local().Format(time.DateTime))
	r.KeyValue("Messages", strconv.Itoa(run.MessageCount))
	r.KeyValue("Matched", formatCounts(run))
	if run.Error != "" {
		r.KeyValue("Error", run.Error)
	}
	r.Println()

	if len(results) == 0 {
		return nil
	}

	// Results are ordered by index, then mode
	type row struct {
		message string
		matches map[string]bool
	}
	var order []int
	byIndex := make(map[int]*row)
	for _, res := range results {
		rw, ok := byIndex[res.Index]
		if !ok {
			rw = &row{message: res.Message, matches: make(map[string]bool)}
			byIndex[res.Index] = rw
			order = append(order, res.Index)
		}
		rw.matches[res.Mode] = res.Matched
	}

	headers := []string{"#", "Message"}
	for _, m := range run.Modes {
		headers = append(headers, output.Label(m))
	}
	rows := make([][]string, 0, len(order))
	for _, idx := range order {
		rw := byIndex[idx]
		cells := []string{strconv.Itoa(idx + 1), rw.message}
		for _, m := range run.Modes {
			cells = append(cells, r.Verdict(rw.matches[m]))
		}
		rows = append(rows, cells)
	}
	r.Table(headers, rows)
	return nil
}

func formatCounts(run *state.Run) string {
	parts := make([]string, 0, len(run.Modes))
	for _, m := range run.Modes {
		parts = append(parts, fmt.Sprintf("%s=%d", m, run.Counts[m]))
	}
	return strings.Join(parts, " ")
}
