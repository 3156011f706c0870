package cache

import (
	"context"
	"time"
)

// Verdict is a cached seen-filter decision for one video identity.
type Verdict struct {
	Allowed bool
}

// VerdictCache defines the interface for caching seen-filter verdicts.
// Implementations should handle serialization transparently.
type VerdictCache interface {
	// Get retrieves a cached verdict by video ID.
	// Returns nil, nil if no verdict is cached (cache miss).
	Get(ctx context.Context, videoID string) (*Verdict, error)

	// Set stores a verdict with the specified TTL.
	Set(ctx context.Context, videoID string, allowed bool, ttl time.Duration) error

	// Delete removes a cached verdict.
	// Returns nil if no verdict was cached.
	Delete(ctx context.Context, videoID string) error
}
