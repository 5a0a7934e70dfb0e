// Package engine validates message batches against a grammar in one or more
// modes, optionally recording each run in the state store.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/leapstack-labs/msgcheck/internal/state"
	"github.com/leapstack-labs/msgcheck/pkg/grammar"
	"golang.org/x/sync/errgroup"
)

// Engine runs batch validations.
type Engine struct {
	workers int
	modes   []Mode
	shape   grammar.LoopShape
	store   state.Store
	logger  *slog.Logger
}

// Config holds engine configuration.
type Config struct {
	// Workers bounds the number of messages validated concurrently.
	// Zero or less uses the number of CPUs.
	Workers int
	// Modes to validate in (default: plain and looping)
	Modes []Mode
	// Shape of the recursive rules for looping mode (default: grammar.DefaultLoopShape)
	Shape *grammar.LoopShape
	// Store records runs and results (optional)
	Store state.Store
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Result is the verdict for one message.
type Result struct {
	Index   int
	Message string
	Matches map[Mode]bool
}

// Report summarizes one validation run.
type Report struct {
	// RunID is set when the run was recorded
	RunID    string
	Source   string
	Modes    []Mode
	Results  []Result
	Counts   map[Mode]int
	Duration time.Duration
}

// Count returns the number of messages matching in mode m.
func (r *Report) Count(m Mode) int {
	return r.Counts[m]
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	modes, err := ParseModes(Strings(cfg.Modes))
	if err != nil {
		return nil, err
	}

	shape := grammar.DefaultLoopShape
	if cfg.Shape != nil {
		shape = *cfg.Shape
	}

	logger.Debug("initializing engine", "workers", workers, "modes", Strings(modes))

	return &Engine{
		workers: workers,
		modes:   modes,
		shape:   shape,
		store:   cfg.Store,
		logger:  logger,
	}, nil
}

// Modes returns the configured modes in evaluation order.
func (e *Engine) Modes() []Mode {
	return e.modes
}

// WithModes returns a copy of e validating in the given modes.
// An empty list keeps the current modes.
func (e *Engine) WithModes(names []string) (*Engine, error) {
	if len(names) == 0 {
		return e, nil
	}
	modes, err := ParseModes(names)
	if err != nil {
		return nil, err
	}
	c := *e
	c.modes = modes
	return &c, nil
}

// Matchers builds one acceptor per configured mode. Any grammar problem in
// any mode is returned before a single message is examined.
func (e *Engine) Matchers(rs *grammar.RuleSet) (map[Mode]grammar.Acceptor, error) {
	matchers := make(map[Mode]grammar.Acceptor, len(e.modes))
	for _, mode := range e.modes {
		var (
			acc grammar.Acceptor
			err error
		)
		switch mode {
		case ModePlain:
			acc, err = grammar.NewMatcher(rs)
		case ModeLooping:
			acc, err = grammar.NewLoopingMatcher(rs, e.shape)
		default:
			err = fmt.Errorf("unknown mode %q", mode)
		}
		if err != nil {
			return nil, fmt.Errorf("%s mode: %w", mode, err)
		}
		matchers[mode] = acc
	}
	return matchers, nil
}

// Validate checks every message against rs in each configured mode.
func (e *Engine) Validate(ctx context.Context, rs *grammar.RuleSet, messages []string) (*Report, error) {
	return e.ValidateSource(ctx, "", rs, messages)
}

// ValidateSource is Validate with a source label (typically the input path)
// stored alongside the recorded run.
func (e *Engine) ValidateSource(ctx context.Context, source string, rs *grammar.RuleSet, messages []string) (*Report, error) {
	start := time.Now()

	matchers, err := e.Matchers(rs)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Source: source,
		Modes:  e.modes,
		Counts: make(map[Mode]int, len(e.modes)),
	}

	var run *state.Run
	if e.store != nil {
		run, err = e.store.CreateRun(source, Strings(e.modes), len(messages))
		if err != nil {
			return nil, fmt.Errorf("failed to record run: %w", err)
		}
		report.RunID = run.ID
	}

	e.logger.Debug("validating messages",
		"messages", len(messages),
		"modes", Strings(e.modes),
		"workers", e.workers,
		"run_id", report.RunID)

	results, err := e.evaluate(ctx, matchers, messages)
	if err != nil {
		e.failRun(run, err)
		return nil, err
	}
	report.Results = results

	for _, mode := range e.modes {
		report.Counts[mode] = 0
	}
	for _, r := range results {
		for mode, ok := range r.Matches {
			if ok {
				report.Counts[mode]++
			}
		}
	}

	if run != nil {
		if err := e.store.SaveResults(run.ID, e.stateResults(run.ID, results)); err != nil {
			e.failRun(run, err)
			return nil, fmt.Errorf("failed to record results: %w", err)
		}
		if err := e.store.CompleteRun(run.ID, state.RunStatusCompleted, ""); err != nil {
			return nil, fmt.Errorf("failed to complete run: %w", err)
		}
	}

	report.Duration = time.Since(start)

	attrs := []any{"messages", len(messages), "duration", report.Duration}
	for _, mode := range e.modes {
		attrs = append(attrs, string(mode), report.Counts[mode])
	}
	e.logger.Info("validation complete", attrs...)

	return report, nil
}

// evaluate runs every matcher over every message with at most e.workers
// messages in flight. Results keep the input order.
func (e *Engine) evaluate(ctx context.Context, matchers map[Mode]grammar.Acceptor, messages []string) ([]Result, error) {
	results := make([]Result, len(messages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, msg := range messages {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			matches := make(map[Mode]bool, len(e.modes))
			for _, mode := range e.modes {
				ok, err := matchers[mode].Matches(msg)
				if err != nil {
					return fmt.Errorf("message %d (%s mode): %w", i+1, mode, err)
				}
				matches[mode] = ok
			}
			results[i] = Result{Index: i, Message: msg, Matches: matches}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// A cancelled parent stops submission without any worker failing
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Engine) stateResults(runID string, results []Result) []state.Result {
	out := make([]state.Result, 0, len(results)*len(e.modes))
	for _, r := range results {
		for _, mode := range e.modes {
			out = append(out, state.Result{
				RunID:   runID,
				Index:   r.Index,
				Message: r.Message,
				Mode:    string(mode),
				Matched: r.Matches[mode],
			})
		}
	}
	return out
}

func (e *Engine) failRun(run *state.Run, cause error) {
	if run == nil {
		return
	}
	if err := e.store.CompleteRun(run.ID, state.RunStatusFailed, cause.Error()); err != nil {
		e.logger.Warn("failed to mark run as failed", "run_id", run.ID, "error", err)
	}
}
