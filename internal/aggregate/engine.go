// Package aggregate maintains per-symbol, per-hour sentiment rollups. The
// incremental path and the full rebuild are two implementations of the same
// commutative fold (count, sum, bucket tally) over scored posts, so applying
// posts one by one or rebuilding over the same set yields identical rows.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stockpulse/stockpulse/internal/domain"
	"github.com/stockpulse/stockpulse/internal/metrics"
	"golang.org/x/sync/singleflight"
)

const defaultQueryHours = 24

// Engine implements incremental aggregate updates, on-demand rebuilds, and
// the query surface consumed by the API layer.
type Engine struct {
	posts domain.PostRepository
	store domain.AggregateStore
	clock clockwork.Clock

	// rebuildGroup collapses concurrent rebuilds of the same scope into one.
	rebuildGroup singleflight.Group
}

func NewEngine(posts domain.PostRepository, store domain.AggregateStore, clock clockwork.Clock) *Engine {
	return &Engine{posts: posts, store: store, clock: clock}
}

// Apply incrementally folds one scored post into the (symbol, hour) rows for
// every symbol it mentions. Implements domain.Aggregator. A post without
// mentions is a no-op.
func (e *Engine) Apply(ctx context.Context, symbols []string, createdAt time.Time, score float64, bucket domain.Bucket) error {
	hour := domain.HourBucket(createdAt)
	for _, symbol := range symbols {
		if err := e.store.ApplyAggregate(ctx, symbol, hour, score, bucket); err != nil {
			return fmt.Errorf("failed to apply aggregate for %s@%s: %w", symbol, hour.Format(time.RFC3339), err)
		}
	}
	return nil
}

// Rebuild recomputes all aggregate rows for symbol within [from, to) from the
// stored posts, scores, and mentions, replacing whatever the incremental path
// produced. Used for backfill, recovery, and inconsistency repair. Concurrent
// rebuilds of the same scope collapse into a single run.
func (e *Engine) Rebuild(ctx context.Context, symbol string, from, to time.Time) error {
	key := fmt.Sprintf("%s|%d|%d", symbol, from.Unix(), to.Unix())
	_, err, _ := e.rebuildGroup.Do(key, func() (any, error) {
		return nil, e.rebuild(ctx, symbol, from, to)
	})
	return err
}

func (e *Engine) rebuild(ctx context.Context, symbol string, from, to time.Time) error {
	scored, err := e.posts.ScoredPostsInRange(ctx, symbol, from, to)
	if err != nil {
		return fmt.Errorf("failed to scan posts for rebuild: %w", err)
	}

	rows := foldRows(scored, symbol)
	if err := e.store.ReplaceAggregates(ctx, symbol, from, to, rows); err != nil {
		return fmt.Errorf("failed to replace aggregates: %w", err)
	}

	slog.InfoContext(ctx, "Rebuilt aggregates",
		"symbol", symbol,
		"from", from.Format(time.RFC3339),
		"to", to.Format(time.RFC3339),
		"rows", len(rows),
		"posts", len(scored))
	return nil
}

// VerifyHour recomputes one (symbol, hour) row from source data and compares
// it with the stored row. On mismatch it logs the inconsistency and rebuilds
// that row. Returns true when the stored row was already consistent.
func (e *Engine) VerifyHour(ctx context.Context, symbol string, hour time.Time) (bool, error) {
	hour = domain.HourBucket(hour)
	next := hour.Add(time.Hour)

	scored, err := e.posts.ScoredPostsInRange(ctx, symbol, hour, next)
	if err != nil {
		return false, fmt.Errorf("failed to scan posts for verification: %w", err)
	}
	expected := foldRows(scored, symbol)

	stored, err := e.store.ListAggregates(ctx, symbol, hour, next)
	if err != nil {
		return false, fmt.Errorf("failed to list stored aggregates: %w", err)
	}

	if aggregateRowsEqual(expected, stored) {
		return true, nil
	}

	metrics.AggregateInconsistenciesTotal.Inc()
	metrics.AggregateRebuildsTotal.WithLabelValues("verify").Inc()
	slog.WarnContext(ctx, "Aggregate inconsistency detected, rebuilding row",
		"symbol", symbol, "hour", hour.Format(time.RFC3339))
	if err := e.Rebuild(ctx, symbol, hour, next); err != nil {
		return false, err
	}
	return false, nil
}

// AggregatesFor returns the non-empty hour rows for symbol over the trailing
// window, ordered by hour ascending.
func (e *Engine) AggregatesFor(ctx context.Context, symbol string, hours int) ([]domain.HourlyAggregate, error) {
	from, to := e.window(hours)
	rows, err := e.store.ListAggregates(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list aggregates for %s: %w", symbol, err)
	}
	return rows, nil
}

// DistributionFor folds the bucket counts across the trailing window.
func (e *Engine) DistributionFor(ctx context.Context, symbol string, hours int) (domain.Distribution, error) {
	rows, err := e.AggregatesFor(ctx, symbol, hours)
	if err != nil {
		return domain.Distribution{}, err
	}

	dist := domain.Distribution{
		Symbol:       symbol,
		BucketCounts: make(map[domain.Bucket]int64, len(domain.AllBuckets)),
	}
	for _, b := range domain.AllBuckets {
		dist.BucketCounts[b] = 0
	}

	var sum float64
	for _, row := range rows {
		dist.TotalPosts += row.PostCount
		sum += row.SumScore
		for b, n := range row.BucketCounts {
			dist.BucketCounts[b] += n
		}
	}
	if dist.TotalPosts > 0 {
		dist.AvgSentiment = sum / float64(dist.TotalPosts)
	}
	return dist, nil
}

// StocksSummary returns one row per symbol with activity in the trailing
// window: total posts, average sentiment, and the most recent post time.
func (e *Engine) StocksSummary(ctx context.Context, hours int) ([]domain.SymbolSummary, error) {
	from, _ := e.window(hours)
	summaries, err := e.store.Summaries(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock summaries: %w", err)
	}
	return summaries, nil
}

func (e *Engine) window(hours int) (from, to time.Time) {
	if hours <= 0 {
		hours = defaultQueryHours
	}
	now := e.clock.Now().UTC()
	return now.Add(-time.Duration(hours) * time.Hour), now.Add(time.Hour)
}

// foldRows is the reference fold: group scored posts by hour and accumulate
// count, sum, and bucket tallies. Input ordering never changes the result
// beyond float summation order, so callers pass posts in (created_at, id)
// order to keep rebuilds reproducible.
func foldRows(scored []domain.ScoredPost, symbol string) []domain.HourlyAggregate {
	byHour := make(map[time.Time]*domain.HourlyAggregate)
	for _, p := range scored {
		hour := domain.HourBucket(p.CreatedAt)
		row, ok := byHour[hour]
		if !ok {
			row = &domain.HourlyAggregate{
				Symbol:       symbol,
				HourBucket:   hour,
				BucketCounts: make(map[domain.Bucket]int64),
			}
			byHour[hour] = row
		}
		row.PostCount++
		row.SumScore += p.Score
		row.BucketCounts[p.Bucket]++
	}

	rows := make([]domain.HourlyAggregate, 0, len(byHour))
	for _, row := range byHour {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].HourBucket.Before(rows[j].HourBucket) })
	return rows
}

func aggregateRowsEqual(a, b []domain.HourlyAggregate) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
