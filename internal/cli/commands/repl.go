package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/msgcheck/internal/cli/output"
	"github.com/leapstack-labs/msgcheck/internal/engine"
	"github.com/leapstack-labs/msgcheck/pkg/grammar"
	"github.com/spf13/cobra"
)

const replPrompt = "msgcheck> "

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl [file]",
		Short: "Check messages interactively",
		Long: `Load a grammar and check messages typed one per line.

Each line is checked in every configured mode and the verdicts are printed.
Lines starting with a dot are commands; type .help to list them.`,
		Example: `  # Start with the grammar of input.txt
  msgcheck repl input.txt

  # Only the looping grammar
  msgcheck repl input.txt --mode looping`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd, args)
		},
	}

	return cmd
}

func runREPL(cmd *cobra.Command, args []string) error {
	cc := NewCommandContext(cmd)

	path := inputPath(cc.Cfg, args)
	if path == stdinPath {
		return errors.New("repl needs an input file; stdin is used for messages")
	}

	in, err := readInput(cmd, path)
	if err != nil {
		return err
	}

	eng, err := cc.Engine(nil)
	if err != nil {
		return err
	}

	sess, err := newREPLSession(cmd.OutOrStdout(), cmd.ErrOrStderr(), eng, in.Rules)
	if err != nil {
		return err
	}

	// History lives next to the state database
	historyFile := ""
	if cc.Cfg.StatePath != ":memory:" {
		stateDir := filepath.Dir(cc.Cfg.StatePath)
		if err := os.MkdirAll(stateDir, 0750); err == nil {
			historyFile = filepath.Join(stateDir, "repl_history")
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newDotCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(sess.out, "msgcheck REPL (%s, %d rules)\n", path, in.Rules.Len())
	_, _ = fmt.Fprintln(sess.out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(sess.out)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if quit := sess.handleLine(line); quit {
			break
		}
	}

	return nil
}

func newDotCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".rules"),
		readline.PcItem(".modes",
			readline.PcItem(string(engine.ModePlain)),
			readline.PcItem(string(engine.ModeLooping)),
		),
		readline.PcItem(".load"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}

// replSession holds the grammar and matchers of an interactive session.
type replSession struct {
	out      io.Writer
	errOut   io.Writer
	engine   *engine.Engine
	rules    *grammar.RuleSet
	matchers map[engine.Mode]grammar.Acceptor
}

func newREPLSession(out, errOut io.Writer, eng *engine.Engine, rs *grammar.RuleSet) (*replSession, error) {
	matchers, err := eng.Matchers(rs)
	if err != nil {
		return nil, err
	}
	return &replSession{out: out, errOut: errOut, engine: eng, rules: rs, matchers: matchers}, nil
}

// handleLine processes one input line and reports whether the session ends.
func (s *replSession) handleLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, ".") {
		return s.handleDotCommand(line)
	}
	s.check(line)
	return false
}

func (s *replSession) check(msg string) {
	parts := make([]string, 0, len(s.matchers))
	for _, mode := range s.engine.Modes() {
		ok, err := s.matchers[mode].Matches(msg)
		if err != nil {
			_, _ = fmt.Fprintf(s.errOut, "Error: %s mode: %v\n", mode, err)
			return
		}
		parts = append(parts, fmt.Sprintf("%s=%s", mode, output.Verdict(ok)))
	}
	_, _ = fmt.Fprintln(s.out, strings.Join(parts, " "))
}

func (s *replSession) handleDotCommand(line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(s.out)

	case ".rules":
		_, _ = fmt.Fprintln(s.out, s.rules.String())

	case ".modes":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(s.out, strings.Join(engine.Strings(s.engine.Modes()), ","))
			return false
		}
		if err := s.setModes(parts[1:]); err != nil {
			_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
		}

	case ".load":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(s.errOut, "Usage: .load <file>")
			return false
		}
		if err := s.load(parts[1]); err != nil {
			_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
		}

	default:
		_, _ = fmt.Fprintf(s.errOut, "Unknown command: %s (type .help for commands)\n", command)
	}
	return false
}

func (s *replSession) setModes(names []string) error {
	eng, err := s.engine.WithModes(names)
	if err != nil {
		return err
	}
	matchers, err := eng.Matchers(s.rules)
	if err != nil {
		return err
	}
	s.engine, s.matchers = eng, matchers
	return nil
}

// load replaces the session grammar; the current one is kept on error.
func (s *replSession) load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	in, err := grammar.ParseInput(f)
	if err != nil {
		return err
	}
	matchers, err := s.engine.Matchers(in.Rules)
	if err != nil {
		return err
	}
	s.rules, s.matchers = in.Rules, matchers
	_, _ = fmt.Fprintf(s.out, "loaded %d rules from %s\n", in.Rules.Len(), path)
	return nil
}

func printREPLHelp(w io.Writer) {
	help := `Commands:
  .help              Show this help
  .rules             Print the loaded grammar
  .modes [m,...]     Show or set the validation modes
  .load <file>       Load the grammar of another input file
  .quit, .exit       Exit the REPL

Any other line is checked as a message.`
	_, _ = fmt.Fprintln(w, help)
}
