package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/msgcheck/internal/engine"
	"github.com/leapstack-labs/msgcheck/pkg/grammar"
)

// maxRequestBytes bounds the size of a validate request body.
const maxRequestBytes = 8 << 20

// ValidateRequest is the body of POST /v1/validate.
type ValidateRequest struct {
	Messages []string `json:"messages"`
	Modes    []string `json:"modes,omitempty"`
}

// ValidateResponse is the result of POST /v1/validate.
type ValidateResponse struct {
	Modes      []string         `json:"modes"`
	Total      int              `json:"total"`
	Counts     map[string]int   `json:"counts"`
	Results    []MessageVerdict `json:"results,omitempty"`
	DurationMS float64          `json:"duration_ms"`
}

// MessageVerdict is the per-mode verdict for one message.
type MessageVerdict struct {
	Index   int             `json:"index"`
	Message string          `json:"message"`
	Matches map[string]bool `json:"matches"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"rules":  s.Rules().Len(),
	})
}

// handleValidate validates a batch against the served grammar.
// ?summary=true omits the per-message results.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := s.validate(w, r)
	s.metrics.RecordRequest(status, time.Since(start))
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request) int {
	var req ValidateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
	}

	eng, err := s.engine.WithModes(req.Modes)
	if err != nil {
		return writeError(w, http.StatusBadRequest, err)
	}

	report, err := eng.Validate(r.Context(), s.Rules(), req.Messages)
	if err != nil {
		if errors.Is(err, grammar.ErrMalformedGrammar) {
			return writeError(w, http.StatusUnprocessableEntity, err)
		}
		return writeError(w, http.StatusInternalServerError, err)
	}

	resp := ValidateResponse{
		Modes:      engine.Strings(report.Modes),
		Total:      len(report.Results),
		Counts:     make(map[string]int, len(report.Modes)),
		DurationMS: float64(report.Duration.Microseconds()) / 1000,
	}
	for _, mode := range report.Modes {
		resp.Counts[string(mode)] = report.Count(mode)
		s.metrics.RecordMessages(string(mode), len(report.Results), report.Count(mode))
	}

	if summary, _ := strconv.ParseBool(r.URL.Query().Get("summary")); !summary {
		resp.Results = make([]MessageVerdict, len(report.Results))
		for i, res := range report.Results {
			matches := make(map[string]bool, len(res.Matches))
			for mode, ok := range res.Matches {
				matches[string(mode)] = ok
			}
			resp.Results[i] = MessageVerdict{Index: res.Index, Message: res.Message, Matches: matches}
		}
	}

	return writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRules(w http.ResponseWriter, _ *http.Request) {
	sum, err := grammar.Describe(s.Rules(), grammar.RootRule)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleRule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid rule id %q", chi.URLParam(r, "id")))
		return
	}

	rule, ok := s.Rules().Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("rule %d is not defined", id))
		return
	}

	writeJSON(w, http.StatusOK, grammar.RuleInfo{
		ID:         rule.ID,
		Definition: rule.String(),
		References: rule.References(),
		Literal:    rule.IsLiteral(),
	})
}

// handleEvents streams reload events as server-sent events until the client
// goes away or the server shuts down.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ch := s.events.Subscribe()
	defer s.events.Unsubscribe(ch)

	// Announce the subscription so clients know events will be delivered
	_, _ = fmt.Fprint(w, ": connected\n\n")
	if err := rc.Flush(); err != nil {
		s.logger.Warn("event stream cannot flush", "error", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			data, err := json.Marshal(ev)
			if err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "event: reload\ndata: %s\n\n", data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) int {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
	return status
}

func writeError(w http.ResponseWriter, status int, err error) int {
	return writeJSON(w, status, errorResponse{Error: err.Error()})
}
