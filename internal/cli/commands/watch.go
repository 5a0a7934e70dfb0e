package commands

import (
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/leapstack-labs/msgcheck/internal/engine"
	"github.com/leapstack-labs/msgcheck/internal/watch"
	"github.com/spf13/cobra"
)

// WatchOptions holds options for the watch command.
type WatchOptions struct {
	List bool
}

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	opts := &WatchOptions{}

	cmd := &cobra.Command{
		Use:   "watch [file]",
		Short: "Re-check an input file whenever it changes",
		Long: `Check an input file, then check it again every time it is saved.

Bursts of writes are collapsed into one check after the debounce period
(watch.debounce_ms, default 100). Grammar errors are reported and watching
continues. Press Ctrl+C to stop.`,
		Example: `  # Watch input.txt
  msgcheck watch input.txt

  # List every message on each check
  msgcheck watch input.txt --list`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.List, "list", false, "List the verdict for every message")
	cmd.Flags().Int("debounce", 0, "Debounce period in milliseconds (default from config)")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string, opts *WatchOptions) error {
	cc := NewCommandContext(cmd)

	path := inputPath(cc.Cfg, args)
	if path == stdinPath {
		return errors.New("watch needs an input file")
	}

	eng, err := cc.Engine(nil)
	if err != nil {
		return err
	}

	// Checks run on the watcher's timer goroutine; keep output whole.
	var mu sync.Mutex
	check := func(path string) {
		mu.Lock()
		defer mu.Unlock()

		if err := checkFile(cmd, cc, eng, path, opts.List); err != nil {
			cc.Renderer.Error(err.Error())
		}
		cc.Renderer.Println()
	}

	check(path)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := watch.New(path, cc.Cfg.Watch.Debounce(), cc.Logger, check)
	cc.Renderer.Println(cc.Renderer.Muted("Watching " + path + " (Ctrl+C to stop)"))
	return w.Run(ctx)
}

func checkFile(cmd *cobra.Command, cc *CommandContext, eng *engine.Engine, path string, list bool) error {
	in, err := readInput(cmd, path)
	if err != nil {
		return err
	}
	report, err := eng.ValidateSource(cmd.Context(), path, in.Rules, in.Messages)
	if err != nil {
		return err
	}
	return renderReport(cc.Renderer, report, list)
}
