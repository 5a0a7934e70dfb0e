package commands

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/msgcheck/internal/server"
	"github.com/leapstack-labs/msgcheck/internal/state"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [file]",
		Short: "Serve the validation HTTP API",
		Long: `Start an HTTP server that validates messages against the grammar of an
input file. Messages in the file itself are ignored.

Endpoints:
  POST /v1/validate    Validate {"messages": [...], "modes": [...]}
  GET  /v1/rules       Describe the grammar
  GET  /v1/rules/{id}  Describe one rule
  GET  /healthz        Liveness check
  GET  /metrics        Prometheus metrics

With --reload the grammar is re-read whenever the file changes. With
record enabled every request is stored in the state database.`,
		Example: `  # Serve input.txt on the default address
  msgcheck serve input.txt

  # Listen on all interfaces and reload on change
  msgcheck serve input.txt --addr :8080 --reload`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, args)
		},
	}

	cmd.Flags().String("addr", server.DefaultAddr, "Address to listen on")
	cmd.Flags().Bool("reload", false, "Reload the grammar when the input file changes")
	cmd.Flags().Bool("record", false, "Record every validation in the state store")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cc := NewCommandContext(cmd)

	path := inputPath(cc.Cfg, args)
	if path == stdinPath {
		return errors.New("serve needs an input file")
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

	srv, err := server.NewServer(server.Config{
		Engine:   eng,
		Path:     path,
		Addr:     cc.Cfg.Server.Addr,
		Watch:    cc.Cfg.Server.Reload,
		Debounce: cc.Cfg.Watch.Debounce(),
		Logger:   cc.Logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cc.Renderer.Success("Serving " + path + " on http://" + cc.Cfg.Server.Addr)
	return srv.Serve(ctx)
}
