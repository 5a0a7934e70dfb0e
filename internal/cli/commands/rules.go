package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/msgcheck/internal/cli/output"
	"github.com/leapstack-labs/msgcheck/pkg/grammar"
	"github.com/spf13/cobra"
)

// RulesOptions holds options for the rules command.
type RulesOptions struct {
	Looping bool
	Root    int
}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	opts := &RulesOptions{}

	cmd := &cobra.Command{
		Use:   "rules [file|-]",
		Short: "Describe the grammar of an input",
		Long: `List the rules of an input grammar in dependency order, with each rule's
depth and whether it is reachable from the root rule.

Cycles and unreachable rules are reported as warnings. With --looping the
recursive forms of rules 8 and 11 are substituted first.

Use --output json or --output yaml to export the grammar.`,
		Example: `  # Describe the grammar of input.txt
  msgcheck rules input.txt

  # Show the grammar with the recursive rules substituted
  msgcheck rules input.txt --looping

  # Export as YAML
  msgcheck rules input.txt -o yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Looping, "looping", false, "Substitute the recursive forms of rules 8 and 11")
	cmd.Flags().IntVar(&opts.Root, "root", 0, "Rule reachability is computed from")

	return cmd
}

func runRules(cmd *cobra.Command, args []string, opts *RulesOptions) error {
	cc := NewCommandContext(cmd)

	in, err := readInput(cmd, inputPath(cc.Cfg, args))
	if err != nil {
		return err
	}

	rs := in.Rules
	if opts.Looping {
		rs, err = rs.WithLoopingRules(grammar.DefaultLoopShape)
		if err != nil {
			return err
		}
	}

	sum, err := grammar.Describe(rs, opts.Root)
	if err != nil {
		return err
	}

	switch cc.Renderer.EffectiveMode() {
	case output.ModeJSON, output.ModeYAML:
		return cc.Renderer.Data(sum)
	default:
		rulesText(cc.Renderer, sum)
		return nil
	}
}

// rulesText outputs the grammar summary as a table, in dependency order when
// the grammar is acyclic.
func rulesText(r *output.Renderer, sum *grammar.Summary) {
	r.Header(1, fmt.Sprintf("Rules (%d total)", len(sum.Rules)))

	byID := make(map[int]grammar.RuleInfo, len(sum.Rules))
	for _, info := range sum.Rules {
		byID[info.ID] = info
	}
	order := sum.Order
	if len(order) == 0 {
		for _, info := range sum.Rules {
			order = append(order, info.ID)
		}
	}

	rows := make([][]string, 0, len(order))
	for _, id := range order {
		info := byID[id]
		depth := "-"
		if info.Depth > 0 {
			depth = strconv.Itoa(info.Depth)
		}
		rows = append(rows, []string{
			strconv.Itoa(info.ID),
			strings.TrimPrefix(info.Definition, strconv.Itoa(info.ID)+": "),
			depth,
			r.Verdict(info.Reachable),
		})
	}
	r.Table([]string{"ID", "Definition", "Depth", "Reachable"}, rows)

	if len(sum.Cycle) > 0 {
		r.Warning(fmt.Sprintf("cycle reachable from rule %d: %s", sum.Root, joinIDs(sum.Cycle, " -> ")))
	}
	if len(sum.Unreachable) > 0 {
		r.Warning(fmt.Sprintf("unreachable from rule %d: %s", sum.Root, joinIDs(sum.Unreachable, ", ")))
	}
}

func joinIDs(ids []int, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, sep)
}
