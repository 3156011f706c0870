package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hszk-dev/reelfeed/internal/domain/repository"
	"github.com/hszk-dev/reelfeed/internal/infrastructure/cache"
	"github.com/hszk-dev/reelfeed/internal/infrastructure/metrics"
	"golang.org/x/sync/singleflight"
)

// SeenFilter is the pure content predicate applied before items enter the
// catalog: a video is admitted only if it was neither seen nor blocked.
type SeenFilter interface {
	// Allow reports whether the video may enter the feed.
	Allow(ctx context.Context, videoID string) (bool, error)

	// MarkSeen records a view and updates the cached verdict.
	MarkSeen(ctx context.Context, videoID string) error

	// Block hides the video from future feeds.
	Block(ctx context.Context, videoID string) error
}

// SeenFilterConfig holds configuration for the cached seen filter.
type SeenFilterConfig struct {
	// CacheTTL is the TTL for cached verdicts.
	CacheTTL time.Duration
}

// DefaultSeenFilterConfig returns the default configuration.
func DefaultSeenFilterConfig() SeenFilterConfig {
	return SeenFilterConfig{
		CacheTTL: 10 * time.Minute,
	}
}

// cachedSeenFilter wraps the durable seen store with a Redis verdict cache.
// Singleflight coalesces concurrent lookups for the same video so a burst
// of announcements for one identity issues a single store query.
type cachedSeenFilter struct {
	store   repository.SeenStore
	cache   cache.VerdictCache
	sfGroup singleflight.Group

	cacheTTL time.Duration
}

// NewCachedSeenFilter creates a SeenFilter over the durable store and the
// verdict cache.
func NewCachedSeenFilter(store repository.SeenStore, verdicts cache.VerdictCache, cfg SeenFilterConfig) SeenFilter {
	return &cachedSeenFilter{
		store:    store,
		cache:    verdicts,
		cacheTTL: cfg.CacheTTL,
	}
}

func (f *cachedSeenFilter) Allow(ctx context.Context, videoID string) (bool, error) {
	result, err, shared := f.sfGroup.Do(videoID, func() (any, error) {
		return f.allowWithCache(ctx, videoID)
	})

	if shared {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
	} else {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
	}

	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

// allowWithCache implements the cache-aside pattern over the verdict cache.
func (f *cachedSeenFilter) allowWithCache(ctx context.Context, videoID string) (bool, error) {
	verdict, err := f.cache.Get(ctx, videoID)
	if err != nil {
		slog.Warn("verdict cache get failed, falling back to store",
			"video_id", videoID,
			"error", err,
		)
	}
	if verdict != nil {
		return verdict.Allowed, nil
	}

	allowed, err := f.lookupStore(ctx, videoID)
	if err != nil {
		return false, err
	}

	if err := f.cache.Set(ctx, videoID, allowed, f.cacheTTL); err != nil {
		slog.Warn("failed to cache verdict",
			"video_id", videoID,
			"error", err,
		)
	}
	return allowed, nil
}

func (f *cachedSeenFilter) lookupStore(ctx context.Context, videoID string) (bool, error) {
	blocked, err := f.store.IsBlocked(ctx, videoID)
	if err != nil {
		return false, fmt.Errorf("check blocked: %w", err)
	}
	if blocked {
		return false, nil
	}

	seen, err := f.store.IsSeen(ctx, videoID)
	if err != nil {
		return false, fmt.Errorf("check seen: %w", err)
	}
	return !seen, nil
}

func (f *cachedSeenFilter) MarkSeen(ctx context.Context, videoID string) error {
	if err := f.store.MarkSeen(ctx, videoID, time.Now()); err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	if err := f.cache.Set(ctx, videoID, false, f.cacheTTL); err != nil {
		slog.Warn("failed to update cached verdict after mark seen",
			"video_id", videoID,
			"error", err,
		)
	}
	return nil
}

func (f *cachedSeenFilter) Block(ctx context.Context, videoID string) error {
	if err := f.store.Block(ctx, videoID, time.Now()); err != nil {
		return fmt.Errorf("block video: %w", err)
	}
	if err := f.cache.Set(ctx, videoID, false, f.cacheTTL); err != nil {
		slog.Warn("failed to update cached verdict after block",
			"video_id", videoID,
			"error", err,
		)
	}
	return nil
}
