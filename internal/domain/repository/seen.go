package repository

import (
	"context"
	"time"
)

// SeenStore persists which videos the user has already watched or blocked.
// The ingest pipeline consults it before a video enters the catalog; the
// cache itself applies no content policy beyond this predicate.
type SeenStore interface {
	// MarkSeen records that the video was viewed at the given time.
	// Marking an already-seen video keeps the earliest timestamp.
	MarkSeen(ctx context.Context, videoID string, at time.Time) error

	// IsSeen reports whether the video was ever viewed.
	IsSeen(ctx context.Context, videoID string) (bool, error)

	// Block hides the video from future feeds.
	Block(ctx context.Context, videoID string, at time.Time) error

	// IsBlocked reports whether the video was blocked.
	IsBlocked(ctx context.Context, videoID string) (bool, error)
}
