package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stockpulse/stockpulse/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateRepo_ApplyAggregate(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewAggregateRepo(pool)
	ctx := context.Background()
	hour := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)

	require.NoError(t, repo.ApplyAggregate(ctx, "TSLA", hour, 0.5, domain.BucketPositive))
	require.NoError(t, repo.ApplyAggregate(ctx, "TSLA", hour, -0.75, domain.BucketVeryNegative))
	require.NoError(t, repo.ApplyAggregate(ctx, "TSLA", hour.Add(time.Hour), 0.25, domain.BucketPositive))

	rows, err := repo.ListAggregates(ctx, "TSLA", hour, hour.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, hour, first.HourBucket)
	assert.Equal(t, int64(2), first.PostCount)
	assert.Equal(t, -0.25, first.SumScore)
	assert.Equal(t, int64(1), first.BucketCounts[domain.BucketPositive])
	assert.Equal(t, int64(1), first.BucketCounts[domain.BucketVeryNegative])
	assert.Equal(t, int64(0), first.BucketCounts[domain.BucketNeutral])

	assert.Equal(t, hour.Add(time.Hour), rows[1].HourBucket)
	assert.Equal(t, int64(1), rows[1].PostCount)
}

func TestAggregateRepo_ReplaceAggregates(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewAggregateRepo(pool)
	ctx := context.Background()
	hour := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)

	// Drifted rows inside the window plus one row outside it.
	require.NoError(t, repo.ApplyAggregate(ctx, "TSLA", hour, 0.5, domain.BucketPositive))
	require.NoError(t, repo.ApplyAggregate(ctx, "TSLA", hour, 0.5, domain.BucketPositive))
	require.NoError(t, repo.ApplyAggregate(ctx, "TSLA", hour.Add(-24*time.Hour), 0.1, domain.BucketNeutral))
	require.NoError(t, repo.ApplyAggregate(ctx, "NVDA", hour, 0.9, domain.BucketVeryPositive))

	replacement := []domain.HourlyAggregate{{
		Symbol:     "TSLA",
		HourBucket: hour,
		PostCount:  1,
		SumScore:   0.5,
		BucketCounts: map[domain.Bucket]int64{
			domain.BucketPositive: 1,
		},
	}}
	require.NoError(t, repo.ReplaceAggregates(ctx, "TSLA", hour, hour.Add(time.Hour), replacement))

	rows, err := repo.ListAggregates(ctx, "TSLA", hour, hour.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].PostCount)
	assert.Equal(t, 0.5, rows[0].SumScore)

	// Rows outside the window and for other symbols are untouched.
	outside, err := repo.ListAggregates(ctx, "TSLA", hour.Add(-24*time.Hour), hour)
	require.NoError(t, err)
	assert.Len(t, outside, 1)
	other, err := repo.ListAggregates(ctx, "NVDA", hour, hour.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestAggregateRepo_Summaries(t *testing.T) {
	pool := setupTestDB(t)
	posts := NewPostRepo(pool)
	repo := NewAggregateRepo(pool)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)

	_, err := posts.InsertPostWithScore(ctx, testPost("a", base), 0.5, domain.BucketPositive, []string{"TSLA"})
	require.NoError(t, err)
	_, err = posts.InsertPostWithScore(ctx, testPost("b", base.Add(time.Hour)), -0.5, domain.BucketNegative, []string{"TSLA", "NVDA"})
	require.NoError(t, err)
	_, err = posts.InsertPostWithScore(ctx, testPost("c", base.Add(-48*time.Hour)), 0.9, domain.BucketVeryPositive, []string{"AMD"})
	require.NoError(t, err)

	summaries, err := repo.Summaries(ctx, base.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, "NVDA", summaries[0].Symbol)
	assert.Equal(t, int64(1), summaries[0].TotalPosts)
	assert.Equal(t, -0.5, summaries[0].AvgSentiment)
	assert.Equal(t, base.Add(time.Hour), summaries[0].MostRecentPost)

	assert.Equal(t, "TSLA", summaries[1].Symbol)
	assert.Equal(t, int64(2), summaries[1].TotalPosts)
	assert.Equal(t, 0.0, summaries[1].AvgSentiment)
}
