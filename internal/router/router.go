// Package router runs one orchestration cycle: either fetch from every source
// and store the results, or answer from the most recent stored events.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/disaster-event-graph/internal/domain"
	"github.com/couchcryptid/disaster-event-graph/internal/observability"
	"github.com/couchcryptid/disaster-event-graph/internal/summarize"
)

// ErrAllSourcesFailed is returned by an ingest cycle when every source
// adapter failed.
var ErrAllSourcesFailed = errors.New("all sources failed")

const (
	// DefaultAnswerWindow is how many recent events the answer path reads.
	DefaultAnswerWindow = 40
)

// Action selects the branch of a cycle.
type Action int

const (
	ActionAnswer Action = iota
	ActionIngest
)

// ParseAction maps "ingest" to ActionIngest and anything else to ActionAnswer.
func ParseAction(s string) Action {
	if strings.EqualFold(strings.TrimSpace(s), "ingest") {
		return ActionIngest
	}
	return ActionAnswer
}

func (a Action) String() string {
	if a == ActionIngest {
		return "ingest"
	}
	return "answer"
}

// Source is an upstream feed adapter.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.Event, error)
}

// Store is the append-only event store.
type Store interface {
	Insert(ctx context.Context, events []domain.Event) (int, error)
	Query(ctx context.Context, filter domain.Filter, limit int) ([]domain.StoredEvent, error)
}

// Publisher broadcasts newly stored events downstream.
type Publisher interface {
	Publish(ctx context.Context, events []domain.Event) error
}

// Options carries the optional collaborators. Nil collaborators are skipped.
type Options struct {
	Summarizer summarize.Summarizer
	Geocoder   domain.Geocoder
	Publisher  Publisher
	// AnswerWindow defaults to DefaultAnswerWindow.
	AnswerWindow int
	// SummaryEvents is passed to the summarizer; defaults to
	// summarize.DefaultMaxEvents.
	SummaryEvents int
}

// SourceError records one adapter's failure within a cycle.
type SourceError struct {
	Source string `json:"source"`
	Err    string `json:"error"`
}

// Result is the outcome of one cycle.
type Result struct {
	RunID        string
	Action       Action
	Fetched      []domain.Event
	Stored       int
	Answer       string
	SourceErrors []SourceError
}

// Router dispatches a cycle to the ingest or answer branch.
type Router struct {
	store   Store
	sources []Source
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a router. Sources are fetched in the given order.
func New(store Store, sources []Source, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Router {
	if opts.AnswerWindow <= 0 {
		opts.AnswerWindow = DefaultAnswerWindow
	}
	if opts.SummaryEvents <= 0 {
		opts.SummaryEvents = summarize.DefaultMaxEvents
	}
	return &Router{
		store:   store,
		sources: sources,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
}

// Sources returns the registered adapter names in fetch order.
func (r *Router) Sources() []string {
	names := make([]string, len(r.sources))
	for i, s := range r.sources {
		names[i] = s.Name()
	}
	return names
}

type state int

const (
	stateRoute state = iota
	stateFetch
	stateStore
	stateAnswer
	stateTerminal
)

// Invoke runs one cycle: Route, then Fetch and Store for ActionIngest or
// Answer otherwise.
func (r *Router) Invoke(ctx context.Context, action Action) (Result, error) {
	res := Result{RunID: uuid.NewString(), Action: action}
	logger := r.logger.With("run_id", res.RunID, "action", action.String())
	start := time.Now()

	var err error
	st := stateRoute
	for st != stateTerminal {
		switch st {
		case stateRoute:
			if action == ActionIngest {
				st = stateFetch
			} else {
				st = stateAnswer
			}
		case stateFetch:
			err = r.fetch(ctx, &res, logger)
			st = stateStore
			if err != nil {
				st = stateTerminal
			}
		case stateStore:
			err = r.storeFetched(ctx, &res, logger)
			st = stateTerminal
		case stateAnswer:
			err = r.answer(ctx, &res, logger)
			st = stateTerminal
		}
	}

	if action == ActionIngest {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		r.metrics.IngestCycles.WithLabelValues(outcome).Inc()
		r.metrics.IngestCycleDuration.Observe(time.Since(start).Seconds())
		if err == nil {
			logger.Info("ingest cycle complete",
				"fetched", len(res.Fetched),
				"stored", res.Stored,
				"source_errors", len(res.SourceErrors),
				"duration", time.Since(start),
			)
		}
	}
	return res, err
}

// fetch calls every source in order, skipping the ones that fail.
func (r *Router) fetch(ctx context.Context, res *Result, logger *slog.Logger) error {
	var fetched []domain.Event
	for _, src := range r.sources {
		name := src.Name()
		events, err := src.Fetch(ctx)
		if err != nil {
			r.metrics.SourceErrors.WithLabelValues(name).Inc()
			res.SourceErrors = append(res.SourceErrors, SourceError{Source: name, Err: err.Error()})
			logger.Warn("source fetch failed", "source", name, "error", err)
			continue
		}
		r.metrics.EventsFetched.WithLabelValues(name).Add(float64(len(events)))
		logger.Debug("source fetched", "source", name, "count", len(events))
		fetched = append(fetched, events...)
	}

	if len(r.sources) > 0 && len(res.SourceErrors) == len(r.sources) {
		logger.Error("every source failed", "sources", len(r.sources))
		return ErrAllSourcesFailed
	}

	res.Fetched = domain.EnrichWithCountry(ctx, fetched, r.opts.Geocoder, logger)
	return nil
}

// storeFetched inserts the fetched events and publishes them downstream.
func (r *Router) storeFetched(ctx context.Context, res *Result, logger *slog.Logger) error {
	if len(res.Fetched) == 0 {
		res.Stored = 0
		return nil
	}

	n, err := r.store.Insert(ctx, res.Fetched)
	if err != nil {
		r.metrics.StoreErrors.Inc()
		logger.Error("store insert failed", "count", len(res.Fetched), "error", err)
		return fmt.Errorf("store events: %w", err)
	}
	res.Stored = n
	r.metrics.EventsStored.Add(float64(n))

	if r.opts.Publisher != nil {
		if err := r.opts.Publisher.Publish(ctx, res.Fetched); err != nil {
			r.metrics.PublishErrors.Inc()
			logger.Warn("publish failed", "count", len(res.Fetched), "error", err)
		} else {
			r.metrics.EventsPublished.Add(float64(len(res.Fetched)))
		}
	}
	return nil
}

// answer summarizes the most recent events, falling back to a deterministic
// listing when the summarizer is absent, fails, or returns nothing.
func (r *Router) answer(ctx context.Context, res *Result, logger *slog.Logger) error {
	events, err := r.store.Query(ctx, domain.Filter{}, r.opts.AnswerWindow)
	if err != nil {
		logger.Error("query recent events failed", "error", err)
		return fmt.Errorf("query recent events: %w", err)
	}
	if len(events) == 0 {
		res.Answer = summarize.NoEvents
		r.metrics.Answers.WithLabelValues("fallback").Inc()
		return nil
	}

	if r.opts.Summarizer != nil {
		text, err := r.opts.Summarizer.Summarize(ctx, events, r.opts.SummaryEvents)
		switch {
		case err != nil:
			logger.Warn("summarizer failed, using fallback", "error", err)
		case strings.TrimSpace(text) == "":
			logger.Warn("summarizer returned empty output, using fallback")
		default:
			res.Answer = text
			r.metrics.Answers.WithLabelValues("summary").Inc()
			return nil
		}
	}

	res.Answer = summarize.Fallback(events)
	r.metrics.Answers.WithLabelValues("fallback").Inc()
	return nil
}
