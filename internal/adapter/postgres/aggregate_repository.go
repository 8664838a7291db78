package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stockpulse/stockpulse/internal/domain"
)

// bucketColumns maps score buckets to their count columns. The five fixed
// columns let ApplyAggregate increment one row atomically without read-modify-
// write.
var bucketColumns = map[domain.Bucket]string{
	domain.BucketVeryNegative: "very_negative_count",
	domain.BucketNegative:     "negative_count",
	domain.BucketNeutral:      "neutral_count",
	domain.BucketPositive:     "positive_count",
	domain.BucketVeryPositive: "very_positive_count",
}

type AggregateRepo struct {
	pool *pgxpool.Pool
}

func NewAggregateRepo(pool *pgxpool.Pool) *AggregateRepo {
	return &AggregateRepo{pool: pool}
}

// ApplyAggregate folds one scored post into its (symbol, hour) row with a
// single atomic upsert.
func (r *AggregateRepo) ApplyAggregate(ctx context.Context, symbol string, hour time.Time, score float64, bucket domain.Bucket) error {
	counts := map[domain.Bucket]int64{bucket: 1}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO hourly_aggregates
			(symbol, hour_bucket, post_count, sum_score,
			 very_negative_count, negative_count, neutral_count, positive_count, very_positive_count)
		VALUES ($1, $2, 1, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, hour_bucket) DO UPDATE SET
			post_count          = hourly_aggregates.post_count + 1,
			sum_score           = hourly_aggregates.sum_score + EXCLUDED.sum_score,
			very_negative_count = hourly_aggregates.very_negative_count + EXCLUDED.very_negative_count,
			negative_count      = hourly_aggregates.negative_count + EXCLUDED.negative_count,
			neutral_count       = hourly_aggregates.neutral_count + EXCLUDED.neutral_count,
			positive_count      = hourly_aggregates.positive_count + EXCLUDED.positive_count,
			very_positive_count = hourly_aggregates.very_positive_count + EXCLUDED.very_positive_count`,
		symbol, hour, score,
		counts[domain.BucketVeryNegative], counts[domain.BucketNegative],
		counts[domain.BucketNeutral], counts[domain.BucketPositive],
		counts[domain.BucketVeryPositive])
	if err != nil {
		return fmt.Errorf("failed to apply aggregate: %w", err)
	}
	return nil
}

// ReplaceAggregates swaps all rows for symbol within [from, to) in one
// transaction, so readers never observe a half-rebuilt window.
func (r *AggregateRepo) ReplaceAggregates(ctx context.Context, symbol string, from, to time.Time, rows []domain.HourlyAggregate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM hourly_aggregates WHERE symbol = $1 AND hour_bucket >= $2 AND hour_bucket < $3`,
		symbol, from, to); err != nil {
		return fmt.Errorf("failed to clear aggregate rows: %w", err)
	}

	for _, row := range rows {
		if _, err := tx.Exec(ctx, `
			INSERT INTO hourly_aggregates
				(symbol, hour_bucket, post_count, sum_score,
				 very_negative_count, negative_count, neutral_count, positive_count, very_positive_count)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			row.Symbol, row.HourBucket, row.PostCount, row.SumScore,
			row.BucketCounts[domain.BucketVeryNegative], row.BucketCounts[domain.BucketNegative],
			row.BucketCounts[domain.BucketNeutral], row.BucketCounts[domain.BucketPositive],
			row.BucketCounts[domain.BucketVeryPositive]); err != nil {
			return fmt.Errorf("failed to insert aggregate row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit aggregate replacement: %w", err)
	}
	return nil
}

func (r *AggregateRepo) ListAggregates(ctx context.Context, symbol string, from, to time.Time) ([]domain.HourlyAggregate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT symbol, hour_bucket, post_count, sum_score,
		       very_negative_count, negative_count, neutral_count, positive_count, very_positive_count
		FROM hourly_aggregates
		WHERE symbol = $1 AND hour_bucket >= $2 AND hour_bucket < $3 AND post_count > 0
		ORDER BY hour_bucket`,
		symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query aggregates: %w", err)
	}
	defer rows.Close()

	var out []domain.HourlyAggregate
	for rows.Next() {
		agg := domain.HourlyAggregate{BucketCounts: make(map[domain.Bucket]int64, len(bucketColumns))}
		var veryNeg, neg, neu, pos, veryPos int64
		if err := rows.Scan(&agg.Symbol, &agg.HourBucket, &agg.PostCount, &agg.SumScore,
			&veryNeg, &neg, &neu, &pos, &veryPos); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate row: %w", err)
		}
		agg.HourBucket = agg.HourBucket.UTC()
		agg.BucketCounts[domain.BucketVeryNegative] = veryNeg
		agg.BucketCounts[domain.BucketNegative] = neg
		agg.BucketCounts[domain.BucketNeutral] = neu
		agg.BucketCounts[domain.BucketPositive] = pos
		agg.BucketCounts[domain.BucketVeryPositive] = veryPos
		out = append(out, agg)
	}
	return out, rows.Err()
}

// Summaries computes per-symbol activity directly from posts and scores, the
// same source of truth rebuilds use.
func (r *AggregateRepo) Summaries(ctx context.Context, from time.Time) ([]domain.SymbolSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.symbol, COUNT(*), AVG(s.score), MAX(p.created_at)
		FROM posts p
		JOIN sentiment_scores s ON s.post_id = p.id
		JOIN symbol_mentions m ON m.post_id = p.id
		WHERE p.created_at >= $1
		GROUP BY m.symbol
		ORDER BY m.symbol`,
		from)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var out []domain.SymbolSummary
	for rows.Next() {
		var s domain.SymbolSummary
		if err := rows.Scan(&s.Symbol, &s.TotalPosts, &s.AvgSentiment, &s.MostRecentPost); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		s.MostRecentPost = s.MostRecentPost.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}
