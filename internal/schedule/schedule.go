// Package schedule runs collections periodically with robfig/cron. A tick
// that fires while the previous run is still going is skipped, so at most one
// run is ever in flight.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/ahmethakanbesel/adzuna-ads/internal/adzuna"
	"github.com/ahmethakanbesel/adzuna-ads/internal/collect"
	"github.com/ahmethakanbesel/adzuna-ads/internal/snapshot"
)

// Collector runs one collection.
type Collector interface {
	Collect(ctx context.Context, q adzuna.Query) (*collect.Result, error)
}

// SnapshotWriter persists a finished run.
type SnapshotWriter interface {
	Write(s snapshot.Snapshot) (string, error)
}

// Scheduler wraps robfig/cron and manages the collection loop.
type Scheduler struct {
	cron      *cron.Cron
	collector Collector
	writer    SnapshotWriter
	query     adzuna.Query
	expr      string

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    sync.WaitGroup
}

// New creates a Scheduler firing on the cron expression expr, e.g. "@daily" or "0 6 * * *".
func New(c Collector, w SnapshotWriter, q adzuna.Query, expr string) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		collector: c,
		writer:    w,
		query:     q,
		expr:      expr,
	}
}

// Start registers the job and starts the scheduler. With runNow the first
// collection starts immediately instead of waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context, runNow bool) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	job := cron.FuncJob(func() { s.RunOnce(s.ctx) })
	if _, err := s.cron.AddJob(s.expr, job); err != nil {
		return fmt.Errorf("cron.AddJob(%q): %w", s.expr, err)
	}

	s.cron.Start()
	slog.Info("scheduler started", "expr", s.expr)

	if runNow {
		s.done.Add(1)
		go func() {
			defer s.done.Done()
			s.RunOnce(s.ctx)
		}()
	}
	return nil
}

// Stop cancels a running collection and waits for it to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
	s.done.Wait()
	slog.Info("scheduler stopped")
}

// RunOnce collects and writes one snapshot. It returns false without doing
// anything when another run is in progress.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		slog.Warn("collection already running, skipping")
		return false
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	res, err := s.collector.Collect(ctx, s.query)
	if err != nil {
		slog.Error("scheduled collection failed", "error", err)
		return true
	}
	path, err := s.writer.Write(res.Snapshot)
	if err != nil {
		slog.Error("write snapshot", "run", res.RunID, "error", err)
		return true
	}
	slog.Info("scheduled collection done", "run", res.RunID, "path", path, "pagesFailed", res.Failed)
	return true
}
