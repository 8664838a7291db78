// Package app is the application layer. The Service orchestrates ingestion
// runs across the configured sources and exposes the query use cases consumed
// by the HTTP API; the Scheduler drives periodic runs.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stockpulse/stockpulse/internal/domain"
	"github.com/stockpulse/stockpulse/internal/metrics"
	"github.com/stockpulse/stockpulse/internal/platform/runid"
	"github.com/stockpulse/stockpulse/internal/symbols"
	"golang.org/x/sync/errgroup"
)

// Source fetches the newest posts from one network.
type Source interface {
	Network() domain.Network
	FetchNew(ctx context.Context) ([]domain.RawPost, error)
}

// Processor runs a batch of raw posts through the ingestion pipeline.
type Processor interface {
	Process(ctx context.Context, raws []domain.RawPost) (domain.IngestResult, error)
}

// AggregateQueries is the slice of the aggregation engine the service needs.
type AggregateQueries interface {
	Rebuild(ctx context.Context, symbol string, from, to time.Time) error
	VerifyHour(ctx context.Context, symbol string, hour time.Time) (bool, error)
	AggregatesFor(ctx context.Context, symbol string, hours int) ([]domain.HourlyAggregate, error)
	DistributionFor(ctx context.Context, symbol string, hours int) (domain.Distribution, error)
	StocksSummary(ctx context.Context, hours int) ([]domain.SymbolSummary, error)
}

// RunLease coordinates runs across instances. Optional; without one the
// in-process guard still enforces at most one run per instance. The service
// renews an acquired lease every TTL/2 so it outlives a long run.
type RunLease interface {
	TryAcquire(ctx context.Context) (bool, error)
	Renew(ctx context.Context) error
	Release(ctx context.Context) error
	TTL() time.Duration
}

type Service struct {
	sources   []Source
	processor Processor
	engine    AggregateQueries
	posts     domain.PostRepository
	registry  *symbols.Registry
	clock     clockwork.Clock

	fetchTimeout time.Duration
	retention    time.Duration

	running atomic.Bool
	lease   RunLease
}

func NewService(sources []Source, processor Processor, engine AggregateQueries, posts domain.PostRepository, registry *symbols.Registry, clock clockwork.Clock, fetchTimeout, retention time.Duration) *Service {
	return &Service{
		sources:      sources,
		processor:    processor,
		engine:       engine,
		posts:        posts,
		registry:     registry,
		clock:        clock,
		fetchTimeout: fetchTimeout,
		retention:    retention,
	}
}

// WithLease adds cross-instance run coordination.
func (s *Service) WithLease(lease RunLease) *Service {
	s.lease = lease
	return s
}

// RunIngestion fetches from every source concurrently and processes the
// combined batch. At most one run is active at a time; a second call while a
// run is active returns domain.ErrRunInProgress.
func (s *Service) RunIngestion(ctx context.Context) (domain.IngestResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return domain.IngestResult{}, domain.ErrRunInProgress
	}
	defer s.running.Store(false)

	if s.lease != nil {
		acquired, err := s.lease.TryAcquire(ctx)
		if err != nil {
			return domain.IngestResult{}, fmt.Errorf("failed to acquire run lease: %w", err)
		}
		if !acquired {
			return domain.IngestResult{}, domain.ErrRunInProgress
		}
		defer func() {
			if err := s.lease.Release(context.WithoutCancel(ctx)); err != nil {
				slog.WarnContext(ctx, "Failed to release run lease", "error", err)
			}
		}()

		renewCtx, stopRenew := context.WithCancel(ctx)
		defer stopRenew()
		go s.renewLease(renewCtx)
	}

	ctx = runid.WithID(ctx, runid.New())
	start := s.clock.Now()
	slog.InfoContext(ctx, "Starting ingestion run", "sources", len(s.sources))

	raws := s.fetchAll(ctx)
	result, err := s.processor.Process(ctx, raws)
	if err != nil {
		return result, fmt.Errorf("ingestion run aborted: %w", err)
	}

	elapsed := s.clock.Since(start)
	metrics.IngestionRunDuration.Observe(elapsed.Seconds())
	slog.InfoContext(ctx, "Ingestion run finished",
		"fetched", len(raws),
		"accepted", result.Accepted,
		"duplicates", result.Duplicates,
		"failed", result.Failed,
		"mentions", result.MentionsCreated,
		"duration", elapsed)
	return result, nil
}

// renewLease extends the run lease every TTL/2 until the run finishes. A
// failed renewal means the lease may have expired and another instance can
// start a run; nothing to do but log and stop renewing.
func (s *Service) renewLease(ctx context.Context) {
	ticker := s.clock.NewTicker(s.lease.TTL() / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if err := s.lease.Renew(ctx); err != nil {
				slog.ErrorContext(ctx, "Failed to renew run lease, another instance may start a run", "error", err)
				return
			}
		}
	}
}

// fetchAll queries all sources concurrently with a per-source timeout. A
// failing source is logged and skipped; the run continues with the rest.
func (s *Service) fetchAll(ctx context.Context) []domain.RawPost {
	var (
		mu   sync.Mutex
		raws []domain.RawPost
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range s.sources {
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gctx, s.fetchTimeout)
			defer cancel()

			fetchStart := s.clock.Now()
			batch, err := src.FetchNew(fetchCtx)
			metrics.FetchDuration.WithLabelValues(string(src.Network())).Observe(s.clock.Since(fetchStart).Seconds())
			if err != nil {
				// A failed source contributes nothing this run, even if it
				// handed back posts alongside the error.
				metrics.FetchRequestsTotal.WithLabelValues(string(src.Network()), "error").Inc()
				slog.WarnContext(ctx, "Source fetch failed", "network", src.Network(), "error", err)
				return nil
			}
			metrics.FetchRequestsTotal.WithLabelValues(string(src.Network()), "success").Inc()

			mu.Lock()
			raws = append(raws, batch...)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return raws
}

// CleanupOldPosts deletes posts older than the retention window. Aggregate
// rows for the deleted hours stay in place so history queries keep working
// beyond the raw post retention.
func (s *Service) CleanupOldPosts(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().UTC().Add(-s.retention)
	deleted, err := s.posts.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete posts before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if deleted > 0 {
		metrics.PostsDeletedTotal.Add(float64(deleted))
		slog.InfoContext(ctx, "Retention cleanup removed posts", "deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
	}
	return deleted, nil
}

// VerifyAggregates checks the previous completed hour for every tracked
// symbol against a recompute from source data. Inconsistent rows are rebuilt
// by the engine. A failing symbol is logged and the rest are still checked.
func (s *Service) VerifyAggregates(ctx context.Context) error {
	hour := domain.HourBucket(s.clock.Now()).Add(-time.Hour)

	var failed int
	for _, entry := range s.registry.Snapshot().Entries() {
		if _, err := s.engine.VerifyHour(ctx, entry.Symbol, hour); err != nil {
			failed++
			slog.WarnContext(ctx, "Aggregate verification failed",
				"symbol", entry.Symbol, "hour", hour.Format(time.RFC3339), "error", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("aggregate verification failed for %d symbols", failed)
	}
	return nil
}

// TrackedSymbols lists the registry entries.
func (s *Service) TrackedSymbols() []symbols.Entry {
	return s.registry.Snapshot().Entries()
}

// ReloadSymbols re-reads the registry source and swaps in the new snapshot.
// Returns the number of tracked symbols after the reload.
func (s *Service) ReloadSymbols() (int, error) {
	if err := s.registry.Reload(); err != nil {
		return 0, fmt.Errorf("failed to reload symbol registry: %w", err)
	}
	n := len(s.registry.Snapshot().Entries())
	slog.Info("Symbol registry reloaded", "symbols", n)
	return n, nil
}

// StocksSummary returns per-symbol activity over the trailing window.
func (s *Service) StocksSummary(ctx context.Context, hours int) ([]domain.SymbolSummary, error) {
	return s.engine.StocksSummary(ctx, hours)
}

// AggregatesFor returns the hourly rows for a tracked symbol.
func (s *Service) AggregatesFor(ctx context.Context, symbol string, hours int) ([]domain.HourlyAggregate, error) {
	if !s.registry.Snapshot().Tracked(symbol) {
		return nil, domain.ErrSymbolNotTracked
	}
	return s.engine.AggregatesFor(ctx, symbol, hours)
}

// DistributionFor returns the bucket distribution for a tracked symbol.
func (s *Service) DistributionFor(ctx context.Context, symbol string, hours int) (domain.Distribution, error) {
	if !s.registry.Snapshot().Tracked(symbol) {
		return domain.Distribution{}, domain.ErrSymbolNotTracked
	}
	return s.engine.DistributionFor(ctx, symbol, hours)
}

// RecentPosts returns the newest stored posts mentioning a tracked symbol.
func (s *Service) RecentPosts(ctx context.Context, symbol string, limit int) ([]domain.Post, error) {
	if !s.registry.Snapshot().Tracked(symbol) {
		return nil, domain.ErrSymbolNotTracked
	}
	return s.posts.RecentPosts(ctx, symbol, limit)
}

// RebuildAggregates recomputes the rows for a tracked symbol over [from, to).
func (s *Service) RebuildAggregates(ctx context.Context, symbol string, from, to time.Time) error {
	if !s.registry.Snapshot().Tracked(symbol) {
		return domain.ErrSymbolNotTracked
	}
	metrics.AggregateRebuildsTotal.WithLabelValues("manual").Inc()
	return s.engine.Rebuild(ctx, symbol, from, to)
}
