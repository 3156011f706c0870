package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hszk-dev/reelfeed/internal/domain/repository"
)

// DBTX is an interface that abstracts pgxpool.Pool and pgx.Tx for testability.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SeenRepository implements repository.SeenStore using PostgreSQL.
//
// Schema:
//
//	CREATE TABLE feed_history (
//	    video_id      TEXT PRIMARY KEY,
//	    first_seen_at TIMESTAMPTZ,
//	    blocked       BOOLEAN NOT NULL DEFAULT FALSE,
//	    blocked_at    TIMESTAMPTZ
//	);
type SeenRepository struct {
	db DBTX
}

// Compile-time verification that SeenRepository implements repository.SeenStore.
var _ repository.SeenStore = (*SeenRepository)(nil)

// NewSeenRepository creates a new SeenRepository instance.
func NewSeenRepository(db DBTX) *SeenRepository {
	return &SeenRepository{db: db}
}

// MarkSeen records a view. Re-marking keeps the earliest timestamp.
func (r *SeenRepository) MarkSeen(ctx context.Context, videoID string, at time.Time) error {
	const query = `
		INSERT INTO feed_history (video_id, first_seen_at)
		VALUES ($1, $2)
		ON CONFLICT (video_id)
		DO UPDATE SET first_seen_at = COALESCE(feed_history.first_seen_at, EXCLUDED.first_seen_at)
	`

	if _, err := r.db.Exec(ctx, query, videoID, at); err != nil {
		return fmt.Errorf("failed to mark video seen: %w", err)
	}
	return nil
}

// IsSeen reports whether the video was ever viewed.
func (r *SeenRepository) IsSeen(ctx context.Context, videoID string) (bool, error) {
	const query = `
		SELECT EXISTS(
			SELECT 1 FROM feed_history
			WHERE video_id = $1 AND first_seen_at IS NOT NULL
		)
	`

	var seen bool
	if err := r.db.QueryRow(ctx, query, videoID).Scan(&seen); err != nil {
		return false, fmt.Errorf("failed to check seen: %w", err)
	}
	return seen, nil
}

// Block hides the video from future feeds.
func (r *SeenRepository) Block(ctx context.Context, videoID string, at time.Time) error {
	const query = `
		INSERT INTO feed_history (video_id, blocked, blocked_at)
		VALUES ($1, TRUE, $2)
		ON CONFLICT (video_id)
		DO UPDATE SET blocked = TRUE, blocked_at = EXCLUDED.blocked_at
	`

	if _, err := r.db.Exec(ctx, query, videoID, at); err != nil {
		return fmt.Errorf("failed to block video: %w", err)
	}
	return nil
}

// IsBlocked reports whether the video was blocked.
func (r *SeenRepository) IsBlocked(ctx context.Context, videoID string) (bool, error) {
	const query = `
		SELECT EXISTS(
			SELECT 1 FROM feed_history
			WHERE video_id = $1 AND blocked
		)
	`

	var blocked bool
	if err := r.db.QueryRow(ctx, query, videoID).Scan(&blocked); err != nil {
		return false, fmt.Errorf("failed to check blocked: %w", err)
	}
	return blocked, nil
}
