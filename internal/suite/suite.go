// Package suite fans scenarios out to a pool of workers, each owning its own
// browser, and collects one report entry per scenario.
package suite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/streamprobe/internal/reporting"
	"github.com/xkilldash9x/streamprobe/internal/scenario"
)

// Worker runs scenarios one at a time. It owns whatever browser resources it
// needs and releases them on Close.
type Worker interface {
	// RunScenario never returns nil; failures are recorded on the entry.
	RunScenario(ctx context.Context, sc scenario.Scenario) *reporting.Entry
	Close() error
}

// WorkerFactory provisions the worker with the given 1-based id. An error
// takes that worker out of the pool; the others carry on.
type WorkerFactory func(ctx context.Context, id int) (Worker, error)

// Options tunes a Suite.
type Options struct {
	Workers int
	// StartInterval spaces out worker provisioning. Zero starts them all at once.
	StartInterval time.Duration
}

// Outcome is the result of a suite run, entries in scenario order.
type Outcome struct {
	Entries []*reporting.Entry
	Summary reporting.Summary
}

// Suite runs a fixed scenario list.
type Suite struct {
	scenarios []scenario.Scenario
	factory   WorkerFactory
	reporter  reporting.Reporter
	opts      Options
	logger    *zap.Logger
}

// New validates the dependencies and returns a Suite. reporter may be nil.
func New(scenarios []scenario.Scenario, factory WorkerFactory, reporter reporting.Reporter, opts Options, logger *zap.Logger) (*Suite, error) {
	if factory == nil {
		return nil, errors.New("worker factory cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Workers > len(scenarios) && len(scenarios) > 0 {
		opts.Workers = len(scenarios)
	}
	return &Suite{
		scenarios: scenarios,
		factory:   factory,
		reporter:  reporter,
		opts:      opts,
		logger:    logger.Named("suite"),
	}, nil
}

type job struct {
	index int
	sc    scenario.Scenario
}

// Run executes every scenario exactly once across the pool. A scenario
// failure is an entry, not an error. The returned error is non-nil only when
// a worker could not be provisioned or the context ended early; scenarios that
// never ran still get an error entry.
func (s *Suite) Run(ctx context.Context) (*Outcome, error) {
	jobs := make(chan job, len(s.scenarios))
	for i, sc := range s.scenarios {
		jobs <- job{index: i, sc: sc}
	}
	close(jobs)

	entries := make([]*reporting.Entry, len(s.scenarios))
	var mu sync.Mutex
	record := func(index int, e *reporting.Entry) {
		mu.Lock()
		entries[index] = e
		mu.Unlock()
		if s.reporter != nil {
			if err := s.reporter.Write(e); err != nil {
				s.logger.Warn("Failed to record entry.", zap.String("scenario", e.Name), zap.Error(err))
			}
		}
	}

	limit := rate.Inf
	if s.opts.StartInterval > 0 {
		limit = rate.Every(s.opts.StartInterval)
	}
	starts := rate.NewLimiter(limit, 1)

	s.logger.Info("Suite starting.", zap.Int("scenarios", len(s.scenarios)), zap.Int("workers", s.opts.Workers))

	// A plain group: one worker failing to provision must not cancel the others.
	var g errgroup.Group
	for id := 1; id <= s.opts.Workers; id++ {
		id := id
		g.Go(func() error {
			return s.runWorker(ctx, id, starts, jobs, record)
		})
	}
	runErr := g.Wait()

	for i, e := range entries {
		if e != nil {
			continue
		}
		reason := "scenario was not run"
		switch {
		case ctx.Err() != nil:
			reason = fmt.Sprintf("scenario was not run: %v", ctx.Err())
		case runErr != nil:
			reason = fmt.Sprintf("scenario was not run: %v", runErr)
		}
		record(i, &reporting.Entry{
			Name:           s.scenarios[i].Name,
			Status:         reporting.StatusError,
			StartedAt:      time.Now(),
			RequestedIndex: s.scenarios[i].StreamerIndex,
			ActualIndex:    -1,
			Error:          reason,
		})
	}

	out := &Outcome{Entries: entries, Summary: reporting.Summarize(entries)}
	s.logger.Info("Suite finished.",
		zap.Int("passed", out.Summary.Passed),
		zap.Int("failed", out.Summary.Failed),
		zap.Int("errored", out.Summary.Errored))

	if runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}
	return out, runErr
}

func (s *Suite) runWorker(ctx context.Context, id int, starts *rate.Limiter, jobs <-chan job, record func(int, *reporting.Entry)) error {
	log := s.logger.With(zap.Int("worker", id))

	if err := starts.Wait(ctx); err != nil {
		// Context ended before this worker's turn; leftover jobs are reported by Run.
		return nil
	}

	w, err := s.factory(ctx, id)
	if err != nil {
		log.Error("Worker could not be provisioned.", zap.Error(err))
		return fmt.Errorf("worker %d: %w", id, err)
	}
	defer func() {
		if err := w.Close(); err != nil {
			log.Warn("Worker did not shut down cleanly.", zap.Error(err))
		}
	}()
	log.Info("Worker ready.")

	for {
		select {
		case <-ctx.Done():
			return nil
		case j, ok := <-jobs:
			if !ok {
				return nil
			}
			e := w.RunScenario(ctx, j.sc)
			if e == nil {
				e = &reporting.Entry{Name: j.sc.Name, Status: reporting.StatusError, Error: "worker returned no result"}
			}
			e.Worker = id
			log.Info("Scenario finished.", zap.String("scenario", e.Name), zap.String("outcome", describe(e)), zap.Duration("duration", e.Duration))
			record(j.index, e)
		}
	}
}
