package aggregate

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stockpulse/stockpulse/internal/adapter/memory"
	"github.com/stockpulse/stockpulse/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, now time.Time) (*Engine, *memory.Store, clockwork.Clock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(now)
	store := memory.NewStore(clock)
	return NewEngine(store, store, clock), store, clock
}

func insertScored(t *testing.T, store *memory.Store, sourceID string, createdAt time.Time, score float64, symbols ...string) {
	t.Helper()
	post := domain.Post{
		ID:        uuid.New(),
		Network:   domain.NetworkReddit,
		SourceID:  sourceID,
		Text:      "text " + sourceID,
		TextClean: "text " + sourceID,
		CreatedAt: createdAt,
	}
	_, err := store.InsertPostWithScore(context.Background(), post, score, domain.BucketFor(score), symbols)
	require.NoError(t, err)
}

func TestEngine_ApplyMatchesRebuild(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
	engine, store, _ := newTestEngine(t, now)
	ctx := context.Background()

	// Scores chosen to be exactly representable so incremental summation and
	// the rebuild fold produce bit-identical rows.
	posts := []struct {
		sourceID  string
		createdAt time.Time
		score     float64
	}{
		{"p1", now.Add(-3 * time.Hour), 0.5},
		{"p2", now.Add(-3*time.Hour + 10*time.Minute), -0.25},
		{"p3", now.Add(-2 * time.Hour), 0.75},
		{"p4", now.Add(-1 * time.Hour), 0.0},
		{"p5", now.Add(-1*time.Hour + 40*time.Minute), -0.625},
	}
	for _, p := range posts {
		insertScored(t, store, p.sourceID, p.createdAt, p.score, "TSLA")
		require.NoError(t, engine.Apply(ctx, []string{"TSLA"}, p.createdAt, p.score, domain.BucketFor(p.score)))
	}

	incremental, err := engine.AggregatesFor(ctx, "TSLA", 24)
	require.NoError(t, err)
	require.Len(t, incremental, 3)

	require.NoError(t, engine.Rebuild(ctx, "TSLA", now.Add(-24*time.Hour), now.Add(time.Hour)))

	rebuilt, err := engine.AggregatesFor(ctx, "TSLA", 24)
	require.NoError(t, err)
	require.Len(t, rebuilt, len(incremental))
	for i := range incremental {
		assert.True(t, incremental[i].Equal(rebuilt[i]),
			"row %d differs: incremental=%+v rebuilt=%+v", i, incremental[i], rebuilt[i])
	}
}

func TestEngine_ApplyFansOutPerSymbol(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	engine, store, _ := newTestEngine(t, now)
	ctx := context.Background()

	createdAt := now.Add(-30 * time.Minute)
	insertScored(t, store, "p1", createdAt, 0.5, "NVDA", "AMD")
	require.NoError(t, engine.Apply(ctx, []string{"NVDA", "AMD"}, createdAt, 0.5, domain.BucketFor(0.5)))

	for _, symbol := range []string{"NVDA", "AMD"} {
		rows, err := engine.AggregatesFor(ctx, symbol, 24)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, int64(1), rows[0].PostCount)
		assert.Equal(t, 0.5, rows[0].SumScore)
	}
}

func TestEngine_ApplyWithoutMentionsIsNoop(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	engine, _, _ := newTestEngine(t, now)
	ctx := context.Background()

	require.NoError(t, engine.Apply(ctx, nil, now, 0.9, domain.BucketVeryPositive))

	summaries, err := engine.StocksSummary(ctx, 24)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestEngine_TwoPostScenario(t *testing.T) {
	now := time.Date(2026, 3, 14, 16, 0, 0, 0, time.UTC)
	engine, store, _ := newTestEngine(t, now)
	ctx := context.Background()

	hour := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	first := hour.Add(5 * time.Minute)
	second := hour.Add(25 * time.Minute)

	insertScored(t, store, "p1", first, 0.5, "TSLA")
	require.NoError(t, engine.Apply(ctx, []string{"TSLA"}, first, 0.5, domain.BucketFor(0.5)))
	insertScored(t, store, "p2", second, -0.75, "TSLA")
	require.NoError(t, engine.Apply(ctx, []string{"TSLA"}, second, -0.75, domain.BucketFor(-0.75)))

	rows, err := engine.AggregatesFor(ctx, "TSLA", 24)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, hour, row.HourBucket)
	assert.Equal(t, int64(2), row.PostCount)
	assert.Equal(t, -0.25, row.SumScore)
	assert.Equal(t, -0.125, row.AvgScore())
	assert.Equal(t, int64(1), row.BucketCounts[domain.BucketPositive])
	assert.Equal(t, int64(1), row.BucketCounts[domain.BucketVeryNegative])
}

func TestEngine_VerifyHourConsistent(t *testing.T) {
	now := time.Date(2026, 3, 14, 16, 0, 0, 0, time.UTC)
	engine, store, _ := newTestEngine(t, now)
	ctx := context.Background()

	createdAt := now.Add(-45 * time.Minute)
	insertScored(t, store, "p1", createdAt, 0.5, "AAPL")
	require.NoError(t, engine.Apply(ctx, []string{"AAPL"}, createdAt, 0.5, domain.BucketFor(0.5)))

	ok, err := engine.VerifyHour(ctx, "AAPL", createdAt)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEngine_VerifyHourRepairsDrift(t *testing.T) {
	now := time.Date(2026, 3, 14, 16, 0, 0, 0, time.UTC)
	engine, store, _ := newTestEngine(t, now)
	ctx := context.Background()

	createdAt := now.Add(-45 * time.Minute)
	insertScored(t, store, "p1", createdAt, 0.5, "AAPL")
	require.NoError(t, engine.Apply(ctx, []string{"AAPL"}, createdAt, 0.5, domain.BucketFor(0.5)))

	// Double-apply simulates a crashed run that persisted the post once but
	// notified the aggregator twice.
	require.NoError(t, engine.Apply(ctx, []string{"AAPL"}, createdAt, 0.5, domain.BucketFor(0.5)))

	ok, err := engine.VerifyHour(ctx, "AAPL", createdAt)
	require.NoError(t, err)
	assert.False(t, ok)

	rows, err := engine.AggregatesFor(ctx, "AAPL", 24)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].PostCount)
	assert.Equal(t, 0.5, rows[0].SumScore)
}

func TestEngine_RebuildDropsOrphanedRows(t *testing.T) {
	now := time.Date(2026, 3, 14, 16, 0, 0, 0, time.UTC)
	engine, store, _ := newTestEngine(t, now)
	ctx := context.Background()

	// Aggregate row exists but no backing post, as after retention cleanup.
	createdAt := now.Add(-2 * time.Hour)
	require.NoError(t, store.ApplyAggregate(ctx, "META", domain.HourBucket(createdAt), 0.5, domain.BucketPositive))

	require.NoError(t, engine.Rebuild(ctx, "META", now.Add(-24*time.Hour), now.Add(time.Hour)))

	rows, err := engine.AggregatesFor(ctx, "META", 24)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEngine_DistributionFor(t *testing.T) {
	now := time.Date(2026, 3, 14, 16, 0, 0, 0, time.UTC)
	engine, store, _ := newTestEngine(t, now)
	ctx := context.Background()

	scores := []float64{0.75, 0.5, 0.0, -0.5, -0.75, 0.25}
	for i, score := range scores {
		createdAt := now.Add(-time.Duration(i+1) * time.Hour)
		sourceID := string(rune('a' + i))
		insertScored(t, store, sourceID, createdAt, score, "NVDA")
		require.NoError(t, engine.Apply(ctx, []string{"NVDA"}, createdAt, score, domain.BucketFor(score)))
	}

	dist, err := engine.DistributionFor(ctx, "NVDA", 24)
	require.NoError(t, err)

	assert.Equal(t, "NVDA", dist.Symbol)
	assert.Equal(t, int64(6), dist.TotalPosts)
	assert.Equal(t, int64(1), dist.BucketCounts[domain.BucketVeryPositive])
	assert.Equal(t, int64(2), dist.BucketCounts[domain.BucketPositive])
	assert.Equal(t, int64(1), dist.BucketCounts[domain.BucketNeutral])
	assert.Equal(t, int64(1), dist.BucketCounts[domain.BucketNegative])
	assert.Equal(t, int64(1), dist.BucketCounts[domain.BucketVeryNegative])
	assert.InDelta(t, 0.0416666, dist.AvgSentiment, 1e-6)
}

func TestEngine_DistributionForEmptyWindow(t *testing.T) {
	now := time.Date(2026, 3, 14, 16, 0, 0, 0, time.UTC)
	engine, _, _ := newTestEngine(t, now)

	dist, err := engine.DistributionFor(context.Background(), "PLTR", 24)
	require.NoError(t, err)

	assert.Equal(t, int64(0), dist.TotalPosts)
	assert.Equal(t, 0.0, dist.AvgSentiment)
	require.Len(t, dist.BucketCounts, len(domain.AllBuckets))
	for _, b := range domain.AllBuckets {
		assert.Equal(t, int64(0), dist.BucketCounts[b])
	}
}

func TestEngine_StocksSummary(t *testing.T) {
	now := time.Date(2026, 3, 14, 16, 0, 0, 0, time.UTC)
	engine, store, _ := newTestEngine(t, now)
	ctx := context.Background()

	early := now.Add(-5 * time.Hour)
	late := now.Add(-1 * time.Hour)
	insertScored(t, store, "p1", early, 0.5, "TSLA")
	insertScored(t, store, "p2", late, -0.5, "TSLA", "NVDA")
	insertScored(t, store, "p3", now.Add(-48*time.Hour), 0.9, "AMD")

	summaries, err := engine.StocksSummary(ctx, 24)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, "NVDA", summaries[0].Symbol)
	assert.Equal(t, int64(1), summaries[0].TotalPosts)
	assert.Equal(t, -0.5, summaries[0].AvgSentiment)
	assert.Equal(t, late, summaries[0].MostRecentPost)

	assert.Equal(t, "TSLA", summaries[1].Symbol)
	assert.Equal(t, int64(2), summaries[1].TotalPosts)
	assert.Equal(t, 0.0, summaries[1].AvgSentiment)
	assert.Equal(t, late, summaries[1].MostRecentPost)
}
