// Package http exposes the service's HTTP surface: health, metrics, ingest
// triggers, answers, event queries, and the knowledge graph projection.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/disaster-event-graph/internal/domain"
	"github.com/couchcryptid/disaster-event-graph/internal/graph"
	"github.com/couchcryptid/disaster-event-graph/internal/observability"
	"github.com/couchcryptid/disaster-event-graph/internal/router"
	"github.com/couchcryptid/disaster-event-graph/internal/scheduler"
)

const (
	defaultEventLimit = 200
	maxEventLimit     = 1000
)

// Ingester runs an ingest cycle unless one is already running.
type Ingester interface {
	TryRun(ctx context.Context) (router.Result, error)
}

// Answerer runs an orchestration cycle.
type Answerer interface {
	Invoke(ctx context.Context, action router.Action) (router.Result, error)
}

// EventQuerier reads stored events.
type EventQuerier interface {
	Query(ctx context.Context, filter domain.Filter, limit int) ([]domain.StoredEvent, error)
}

// Services are the collaborators behind the routes.
type Services struct {
	Ready    sharedobs.ReadinessChecker
	Ingester Ingester
	Answerer Answerer
	Events   EventQuerier
	Metrics  *observability.Metrics
}

// Server exposes the service routes.
type Server struct {
	httpServer *http.Server
	svc        Services
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics,
// /ingest/run, /chat, /events, and /graph routes.
func NewServer(addr string, svc Services, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 2 * time.Minute, // ingest runs every source inline
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(svc.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /ingest/run", s.handleIngest)
	mux.HandleFunc("GET /chat", s.handleChat)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /graph", s.handleGraph)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type ingestResponse struct {
	Stored       int                  `json:"stored"`
	RunID        string               `json:"run_id,omitempty"`
	SourceErrors []router.SourceError `json:"source_errors,omitempty"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Ingester.TryRun(r.Context())
	switch {
	case errors.Is(err, scheduler.ErrBusy):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, router.ErrAllSourcesFailed):
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":         err.Error(),
			"source_errors": res.SourceErrors,
		})
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, ingestResponse{
			Stored:       res.Stored,
			RunID:        res.RunID,
			SourceErrors: res.SourceErrors,
		})
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Answerer.Invoke(r.Context(), router.ActionAnswer)
	if err != nil {
		s.logger.Error("answer failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": res.Answer})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	events, err := s.svc.Events.Query(r.Context(), parseFilter(q), limit)
	if err != nil {
		s.logger.Error("query events failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if events == nil {
		events = []domain.StoredEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	opts, nodeLimit, err := parseGraphOptions(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	events, err := s.svc.Events.Query(r.Context(), parseFilter(q), limit)
	if err != nil {
		s.logger.Error("query events for graph failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	start := time.Now()
	g := graph.Build(events, opts)
	if s.svc.Metrics != nil {
		s.svc.Metrics.GraphBuildDuration.Observe(time.Since(start).Seconds())
	}
	writeJSON(w, http.StatusOK, graph.ToVis(g, nodeLimit))
}

func parseFilter(q url.Values) domain.Filter {
	return domain.Filter{
		EventType: q.Get("event_type"),
		Country:   q.Get("country"),
		Source:    q.Get("source"),
		Since:     q.Get("since"),
	}
}

func parseLimit(s string) (int, error) {
	if s == "" {
		return defaultEventLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > maxEventLimit {
		return 0, fmt.Errorf("limit must be an integer between 1 and %d", maxEventLimit)
	}
	return n, nil
}

func parseGraphOptions(q url.Values) (graph.Options, int, error) {
	opts := graph.DefaultOptions()
	if v := q.Get("sequence_by"); v != "" {
		opts.SequenceBy = v
	}
	for _, b := range []struct {
		name string
		dst  *bool
	}{
		{"connect_sequence", &opts.ConnectSequence},
		{"include_types", &opts.IncludeTypes},
		{"include_countries", &opts.IncludeCountries},
	} {
		v := q.Get(b.name)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return opts, 0, fmt.Errorf("%s must be a boolean", b.name)
		}
		*b.dst = parsed
	}

	nodeLimit := graph.DefaultVisLimit
	if v := q.Get("node_limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, 0, errors.New("node_limit must be a positive integer")
		}
		nodeLimit = n
	}
	return opts, nodeLimit, nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
