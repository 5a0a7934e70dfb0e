package commands

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/msgcheck/internal/cli/output"
	"github.com/leapstack-labs/msgcheck/internal/engine"
	"github.com/leapstack-labs/msgcheck/internal/state"
	"github.com/spf13/cobra"
)

// CheckOptions holds options for the check command.
type CheckOptions struct {
	List bool
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check [file|-]",
		Short: "Count the messages that match rule 0",
		Long: `Read a grammar and a list of messages, then count the messages that match
rule 0 completely in each validation mode.

The input holds rule lines, a blank line, then one message per line.
With no file argument the configured input is used, then stdin.

Modes:
  - plain:   the grammar as written (must be acyclic)
  - looping: rules 8 and 11 replaced by their recursive forms

Output adapts to environment:
  - Terminal: Styled, colored output
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json, yaml`,
		Example: `  # Check an input file in both modes
  msgcheck check input.txt

  # Only the plain grammar, listing every message
  msgcheck check input.txt --mode plain --list

  # Read from stdin and record the run
  cat input.txt | msgcheck check - --record`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.List, "list", false, "List the verdict for every message")
	cmd.Flags().Bool("record", false, "Record the run in the state store")

	return cmd
}

func runCheck(cmd *cobra.Command, args []string, opts *CheckOptions) error {
	cc := NewCommandContext(cmd)
	path := inputPath(cc.Cfg, args)

	in, err := readInput(cmd, path)
	if err != nil {
		return err
	}

	var store state.Store
	if cc.Cfg.Record {
		sqlStore, err := openStore(cc.Cfg.StatePath)
		if err != nil {
			return err
		}
		defer func() { _ = sqlStore.Close() }()
		store = sqlStore
	}

	eng, err := cc.Engine(store)
	if err != nil {
		return err
	}

	cc.Logger.Debug("checking messages", "input", displayPath(path), "rules", in.Rules.Len(), "messages", len(in.Messages))

	report, err := eng.ValidateSource(cmd.Context(), displayPath(path), in.Rules, in.Messages)
	if err != nil {
		return err
	}

	return renderReport(cc.Renderer, report, opts.List)
}

// checkReport is the machine-readable form of a validation report.
type checkReport struct {
	RunID    string         `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Source   string         `json:"source" yaml:"source"`
	Modes    []string       `json:"modes" yaml:"modes"`
	Total    int            `json:"total" yaml:"total"`
	Counts   map[string]int `json:"counts" yaml:"counts"`
	Messages []checkMessage `json:"messages,omitempty" yaml:"messages,omitempty"`
}

type checkMessage struct {
	Index   int             `json:"index" yaml:"index"`
	Message string          `json:"message" yaml:"message"`
	Matches map[string]bool `json:"matches" yaml:"matches"`
}

func newCheckReport(report *engine.Report, list bool) checkReport {
	out := checkReport{
		RunID:  report.RunID,
		Source: report.Source,
		Modes:  engine.Strings(report.Modes),
		Total:  len(report.Results),
		Counts: make(map[string]int, len(report.Modes)),
	}
	for _, m := range report.Modes {
		out.Counts[string(m)] = report.Count(m)
	}
	if list {
		for _, res := range report.Results {
			msg := checkMessage{Index: res.Index, Message: res.Message, Matches: make(map[string]bool)}
			for m, ok := range res.Matches {
				msg.Matches[string(m)] = ok
			}
			out.Messages = append(out.Messages, msg)
		}
	}
	return out
}

func renderReport(r *output.Renderer, report *engine.Report, list bool) error {
	switch r.EffectiveMode() {
	case output.ModeJSON, output.ModeYAML:
		return r.Data(newCheckReport(report, list))
	default:
		checkText(r, report, list)
		return nil
	}
}

// checkText outputs the report as styled text or markdown.
func checkText(r *output.Renderer, report *engine.Report, list bool) {
	r.Header(1, fmt.Sprintf("Validation: %s", report.Source))
	r.KeyValue("Messages", strconv.Itoa(len(report.Results)))
	if report.RunID != "" {
		r.KeyValue("Run", report.RunID)
	}
	r.Println()

	rows := make([][]string, 0, len(report.Modes))
	for _, m := range report.Modes {
		rows = append(rows, []string{output.Label(string(m)), strconv.Itoa(report.Count(m))})
	}
	r.Table([]string{"Mode", "Matched"}, rows)

	if !list || len(report.Results) == 0 {
		return
	}

	r.Println()
	headers := []string{"#", "Message"}
	for _, m := range report.Modes {
		headers = append(headers, output.Label(string(m)))
	}
	rows = make([][]string, 0, len(report.Results))
	for _, res := range report.Results {
		row := []string{strconv.Itoa(res.Index + 1), res.Message}
		for _, m := range report.Modes {
			row = append(row, r.Verdict(res.Matches[m]))
		}
		rows = append(rows, row)
	}
	r.Table(headers, rows)
}
