// Package scheduler re-runs ingest cycles on a fixed interval. At most one
// cycle runs at a time; triggers that arrive while one is running are skipped.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/disaster-event-graph/internal/observability"
	"github.com/couchcryptid/disaster-event-graph/internal/router"
)

// ErrBusy is returned by TryRun when a cycle is already running.
var ErrBusy = errors.New("ingest already running")

// Invoker runs one orchestration cycle.
type Invoker interface {
	Invoke(ctx context.Context, action router.Action) (router.Result, error)
}

// Scheduler owns the single-flight guard for ingest cycles, shared between
// the ticker and on-demand triggers.
type Scheduler struct {
	invoker  Invoker
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics

	running atomic.Bool
	wg      sync.WaitGroup
}

// New creates a scheduler. A zero interval disables ticking; TryRun still works.
// A nil clock uses real time.
func New(invoker Invoker, interval time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		invoker:  invoker,
		interval: interval,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// Running reports whether an ingest cycle is in progress.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// TryRun runs an ingest cycle synchronously unless one is already running,
// in which case it returns ErrBusy without invoking anything.
func (s *Scheduler) TryRun(ctx context.Context) (router.Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.metrics.IngestCyclesSkipped.Inc()
		return router.Result{}, ErrBusy
	}
	s.wg.Add(1)
	return s.cycle(ctx)
}

// Run ticks until ctx is cancelled, then waits for any in-flight cycle.
// Cycles are not cancelled by ctx; they finish within the adapter timeouts.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.wg.Wait()

	if s.interval <= 0 {
		s.logger.Info("scheduled ingest disabled")
		<-ctx.Done()
		return nil
	}

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.Info("scheduled ingest started", "interval", s.interval)

	cycleCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduled ingest stopping")
			return nil
		case <-ticker.Chan():
			if !s.running.CompareAndSwap(false, true) {
				s.metrics.IngestCyclesSkipped.Inc()
				s.logger.Warn("ingest still running, skipping tick")
				continue
			}
			s.wg.Add(1)
			go func() {
				_, _ = s.cycle(cycleCtx)
			}()
		}
	}
}

// cycle runs one ingest. The caller has set running and added to wg.
func (s *Scheduler) cycle(ctx context.Context) (router.Result, error) {
	defer s.wg.Done()
	defer s.running.Store(false)

	res, err := s.invoker.Invoke(ctx, router.ActionIngest)
	if err != nil {
		s.logger.Error("ingest cycle failed", "run_id", res.RunID, "error", err)
	}
	return res, err
}
