package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stockpulse/stockpulse/internal/domain"
)

type PostRepo struct {
	pool *pgxpool.Pool
}

func NewPostRepo(pool *pgxpool.Pool) *PostRepo {
	return &PostRepo{pool: pool}
}

func (r *PostRepo) Exists(ctx context.Context, network domain.Network, sourceID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM posts WHERE network = $1 AND source_id = $2)`,
		string(network), sourceID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check post existence: %w", err)
	}
	return exists, nil
}

// InsertPostWithScore writes the post, its score, and its symbol mentions in
// one transaction. ON CONFLICT DO NOTHING on (network, source_id) resolves
// races between concurrent runs; the loser gets domain.ErrDuplicatePost and
// nothing is written.
func (r *PostRepo) InsertPostWithScore(ctx context.Context, post domain.Post, score float64, bucket domain.Bucket, symbols []string) (uuid.UUID, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO posts (id, network, source_id, author, url, title, body, body_clean, created_at, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (network, source_id) DO NOTHING
		RETURNING id`,
		post.ID, string(post.Network), post.SourceID, post.Author, post.URL,
		post.Title, post.Text, post.TextClean, post.CreatedAt, post.IngestedAt).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, domain.ErrDuplicatePost
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert post: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO sentiment_scores (post_id, score, bucket) VALUES ($1, $2, $3)`,
		id, score, string(bucket)); err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert score: %w", err)
	}

	for _, symbol := range symbols {
		if _, err := tx.Exec(ctx,
			`INSERT INTO symbol_mentions (post_id, symbol) VALUES ($1, $2)`,
			id, symbol); err != nil {
			return uuid.Nil, fmt.Errorf("failed to insert mention of %s: %w", symbol, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit post transaction: %w", err)
	}
	return id, nil
}

func (r *PostRepo) RecentPosts(ctx context.Context, symbol string, limit int) ([]domain.Post, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT p.id, p.network, p.source_id, p.author, p.url, p.title, p.body, p.body_clean, p.created_at, p.ingested_at
		FROM posts p`
	args := []any{limit}
	if symbol != "" {
		query += `
		JOIN symbol_mentions m ON m.post_id = p.id AND m.symbol = $2`
		args = append(args, symbol)
	}
	query += `
		ORDER BY p.created_at DESC, p.id
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		var p domain.Post
		var network string
		if err := rows.Scan(&p.ID, &network, &p.SourceID, &p.Author, &p.URL, &p.Title, &p.Text, &p.TextClean, &p.CreatedAt, &p.IngestedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		p.Network = domain.Network(network)
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// ScoredPostsInRange returns posts mentioning symbol with created_at in
// [from, to), ordered by (created_at, id) so rebuilds fold rows in a stable
// order.
func (r *PostRepo) ScoredPostsInRange(ctx context.Context, symbol string, from, to time.Time) ([]domain.ScoredPost, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.created_at, s.score, s.bucket,
		       (SELECT array_agg(m2.symbol ORDER BY m2.symbol) FROM symbol_mentions m2 WHERE m2.post_id = p.id)
		FROM posts p
		JOIN sentiment_scores s ON s.post_id = p.id
		JOIN symbol_mentions m ON m.post_id = p.id AND m.symbol = $1
		WHERE p.created_at >= $2 AND p.created_at < $3
		ORDER BY p.created_at, p.id`,
		symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query scored posts: %w", err)
	}
	defer rows.Close()

	var scored []domain.ScoredPost
	for rows.Next() {
		var sp domain.ScoredPost
		var bucket string
		if err := rows.Scan(&sp.PostID, &sp.CreatedAt, &sp.Score, &bucket, &sp.Symbols); err != nil {
			return nil, fmt.Errorf("failed to scan scored post: %w", err)
		}
		sp.Bucket = domain.Bucket(bucket)
		scored = append(scored, sp)
	}
	return scored, rows.Err()
}

func (r *PostRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old posts: %w", err)
	}
	return tag.RowsAffected(), nil
}
