package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stockpulse/stockpulse/internal/domain"
	"github.com/stockpulse/stockpulse/internal/metrics"
)

const (
	cleanupEvery = 24 * time.Hour
	verifyEvery  = time.Hour
)

// Runner is the slice of the Service the scheduler drives.
type Runner interface {
	RunIngestion(ctx context.Context) (domain.IngestResult, error)
	VerifyAggregates(ctx context.Context) error
	CleanupOldPosts(ctx context.Context) (int64, error)
}

// Scheduler triggers ingestion runs at a fixed interval, aggregate
// verification once an hour, and retention cleanup once a day. A tick that
// lands while a run is still active is skipped, never queued.
type Scheduler struct {
	runner   Runner
	clock    clockwork.Clock
	interval time.Duration

	lastVerify  time.Time
	lastCleanup time.Time
}

func NewScheduler(runner Runner, clock clockwork.Clock, interval time.Duration) *Scheduler {
	return &Scheduler{
		runner:   runner,
		clock:    clock,
		interval: interval,
	}
}

// Run starts the periodic loop. It blocks until ctx is cancelled. The first
// ingestion run fires immediately so a fresh deployment has data before the
// first interval elapses.
func (s *Scheduler) Run(ctx context.Context) {
	s.lastVerify = s.clock.Now()
	s.lastCleanup = s.clock.Now()
	s.tick(ctx)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.runner.RunIngestion(ctx); err != nil {
		if errors.Is(err, domain.ErrRunInProgress) {
			metrics.IngestionRunsSkipped.Inc()
			slog.DebugContext(ctx, "Skipping tick, previous run still active")
		} else {
			slog.ErrorContext(ctx, "Ingestion run failed", "error", err)
		}
	}

	if s.clock.Since(s.lastVerify) >= verifyEvery {
		if err := s.runner.VerifyAggregates(ctx); err != nil {
			slog.ErrorContext(ctx, "Aggregate verification failed", "error", err)
		}
		s.lastVerify = s.clock.Now()
	}

	if s.clock.Since(s.lastCleanup) >= cleanupEvery {
		if _, err := s.runner.CleanupOldPosts(ctx); err != nil {
			slog.ErrorContext(ctx, "Retention cleanup failed", "error", err)
		}
		s.lastCleanup = s.clock.Now()
	}
}
