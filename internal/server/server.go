// Package server exposes the validator over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/msgcheck/internal/engine"
	"github.com/leapstack-labs/msgcheck/internal/watch"
	"github.com/leapstack-labs/msgcheck/pkg/grammar"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = "127.0.0.1:8080"

// Server is the validation API server.
type Server struct {
	engine   *engine.Engine
	addr     string
	path     string
	watch    bool
	debounce time.Duration
	logger   *slog.Logger
	metrics  *Metrics
	events   *Notifier

	mu    sync.RWMutex
	rules *grammar.RuleSet
}

// Config holds configuration for the API server.
type Config struct {
	Engine *engine.Engine
	// Rules is the grammar to serve. When nil it is loaded from Path.
	Rules *grammar.RuleSet
	// Path is the input file the grammar was read from (required for Watch)
	Path     string
	Addr     string
	Watch    bool
	Debounce time.Duration
	Logger   *slog.Logger
	// Registry receives the API metrics (optional, private registry if nil)
	Registry *prometheus.Registry
}

// NewServer creates a new API server instance.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("server requires an engine")
	}
	if cfg.Watch && cfg.Path == "" {
		return nil, errors.New("watch requires an input path")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}

	s := &Server{
		engine:   cfg.Engine,
		addr:     addr,
		path:     cfg.Path,
		watch:    cfg.Watch,
		debounce: cfg.Debounce,
		logger:   logger,
		metrics:  NewMetrics(cfg.Registry),
		events:   NewNotifier(),
	}

	rules := cfg.Rules
	if rules == nil {
		if cfg.Path == "" {
			return nil, errors.New("server requires rules or an input path")
		}
		var err error
		if rules, err = loadRules(cfg.Path); err != nil {
			return nil, err
		}
	}
	s.SetRules(rules)

	return s, nil
}

// Rules returns the grammar currently served.
func (s *Server) Rules() *grammar.RuleSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules
}

// SetRules replaces the served grammar.
func (s *Server) SetRules(rs *grammar.RuleSet) {
	s.mu.Lock()
	s.rules = rs
	s.mu.Unlock()
	s.metrics.SetGrammarRules(rs.Len())
}

// Reload re-reads the grammar from the input path. On error the current
// grammar keeps being served. Every attempt is sent to /v1/events listeners.
func (s *Server) Reload() error {
	rules, err := loadRules(s.path)
	s.metrics.RecordReload(err)
	if err != nil {
		s.events.Broadcast(ReloadEvent{Rules: s.Rules().Len(), Error: err.Error(), At: time.Now().UTC()})
		return err
	}
	s.SetRules(rules)
	s.events.Broadcast(ReloadEvent{Rules: rules.Len(), At: time.Now().UTC()})
	s.logger.Info("grammar reloaded", "path", s.path, "rules", rules.Len())
	return nil
}

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
	)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(requestLogger(s.logger))
		r.Post("/validate", s.handleValidate)
		r.Get("/rules", s.handleRules)
		r.Get("/rules/{id}", s.handleRule)
		r.Get("/events", s.handleEvents)
	})

	return r
}

// Serve starts the API server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is like Serve but accepts connections on ln.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting API server", "addr", "http://"+ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch {
		w := watch.New(s.path, s.debounce, s.logger, func(string) {
			if err := s.Reload(); err != nil {
				s.logger.Error("grammar reload failed, keeping previous rules", "path", s.path, "error", err)
			}
		})
		eg.Go(func() error {
			return w.Run(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down API server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func loadRules(path string) (*grammar.RuleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer func() { _ = f.Close() }()

	in, err := grammar.ParseInput(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return in.Rules, nil
}

// requestLogger logs each request at debug level through slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}
