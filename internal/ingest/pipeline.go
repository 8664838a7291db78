// Package ingest turns raw posts fetched from social networks into persisted,
// scored, aggregated records. Each post flows through clean, dedup, symbol
// detection, sentiment scoring, persistence, and aggregate notification.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stockpulse/stockpulse/internal/domain"
	"github.com/stockpulse/stockpulse/internal/metrics"
	"github.com/stockpulse/stockpulse/internal/platform/retry"
)

const (
	outcomeAccepted  = "accepted"
	outcomeDuplicate = "duplicate"
	outcomeFailed    = "failed"
)

// Pipeline processes raw posts one at a time. A failure on one post never
// aborts the batch; outcomes are tallied in the returned IngestResult.
type Pipeline struct {
	detector   domain.Detector
	scorer     domain.Scorer
	posts      domain.PostRepository
	aggregator domain.Aggregator
	clock      clockwork.Clock
	persist    retry.Policy
}

func NewPipeline(detector domain.Detector, scorer domain.Scorer, posts domain.PostRepository, aggregator domain.Aggregator, clock clockwork.Clock) *Pipeline {
	return &Pipeline{
		detector:   detector,
		scorer:     scorer,
		posts:      posts,
		aggregator: aggregator,
		clock:      clock,
		persist: retry.Policy{
			MaxAttempts:    2,
			InitialBackoff: 200 * time.Millisecond,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				slog.Warn("Retrying post persistence", "attempt", attempt, "backoff", backoff, "error", err)
			},
		},
	}
}

// Process runs the batch through the pipeline and returns per-outcome counts.
// It only returns an error when the context is cancelled mid-batch.
func (p *Pipeline) Process(ctx context.Context, raws []domain.RawPost) (domain.IngestResult, error) {
	var result domain.IngestResult

	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		outcome, mentions := p.processOne(ctx, raw)
		switch outcome {
		case outcomeAccepted:
			result.Accepted++
		case outcomeDuplicate:
			result.Duplicates++
		case outcomeFailed:
			result.Failed++
		}
		result.MentionsCreated += mentions
	}

	return result, nil
}

func (p *Pipeline) processOne(ctx context.Context, raw domain.RawPost) (string, int) {
	network := string(raw.Network)

	exists, err := p.posts.Exists(ctx, raw.Network, raw.SourceID)
	if err != nil {
		slog.WarnContext(ctx, "Duplicate pre-check failed, attempting insert anyway",
			"network", network, "source_id", raw.SourceID, "error", err)
	} else if exists {
		metrics.IngestedPostsTotal.WithLabelValues(network, outcomeDuplicate).Inc()
		return outcomeDuplicate, 0
	}

	content := raw.Title
	if raw.Text != "" {
		if content != "" {
			content += " "
		}
		content += raw.Text
	}
	clean := CleanText(content)

	symbols := p.detector.Detect(clean)
	score, bucket := p.score(ctx, clean)

	post := domain.Post{
		ID:         uuid.New(),
		Network:    raw.Network,
		SourceID:   raw.SourceID,
		Author:     raw.Author,
		URL:        raw.URL,
		Title:      raw.Title,
		Text:       raw.Text,
		TextClean:  clean,
		CreatedAt:  raw.CreatedAt.UTC(),
		IngestedAt: p.clock.Now().UTC(),
	}

	_, err = retry.Do(ctx, p.persist, classifyPersist, func() (uuid.UUID, error) {
		return p.posts.InsertPostWithScore(ctx, post, score, bucket, symbols)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicatePost) {
			// Lost the race against a concurrent run; the winner's row stands.
			metrics.IngestedPostsTotal.WithLabelValues(network, outcomeDuplicate).Inc()
			return outcomeDuplicate, 0
		}
		slog.ErrorContext(ctx, "Failed to persist post",
			"network", network, "source_id", raw.SourceID, "error", err)
		metrics.IngestedPostsTotal.WithLabelValues(network, outcomeFailed).Inc()
		return outcomeFailed, 0
	}

	metrics.IngestedPostsTotal.WithLabelValues(network, outcomeAccepted).Inc()
	for _, symbol := range symbols {
		metrics.SymbolMentionsTotal.WithLabelValues(symbol).Inc()
	}
	if len(symbols) > 0 {
		if err := p.aggregator.Apply(ctx, symbols, post.CreatedAt, score, bucket); err != nil {
			// The post is durable; a rebuild over this window repairs the rows.
			slog.ErrorContext(ctx, "Failed to apply aggregates for post",
				"network", network, "source_id", raw.SourceID, "symbols", symbols, "error", err)
		}
	}
	return outcomeAccepted, len(symbols)
}

// score shields the pipeline from scorer faults. Any panic downgrades the
// post to a neutral score instead of dropping it.
func (p *Pipeline) score(ctx context.Context, text string) (score float64, bucket domain.Bucket) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Scoring panicked, falling back to neutral", "panic", r)
			metrics.ScoringFailuresTotal.Inc()
			score, bucket = 0, domain.BucketNeutral
		}
	}()
	return p.scorer.Score(text)
}

func classifyPersist(err error) retry.Action {
	if errors.Is(err, domain.ErrDuplicatePost) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retry.Stop
	}
	return retry.Retry
}
