// Package player provides the production controller factory. A controller
// acquisition prefetches the leading bytes of the media object and resolves
// a presigned playback URL, so playback can start without touching origin
// storage again.
package player

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hszk-dev/reelfeed/internal/domain/model"
	"github.com/hszk-dev/reelfeed/internal/domain/repository"
)

const (
	// DefaultPrefetchBytes is how much of the object head is buffered per
	// acquisition. One megabyte covers the moov atom and the first segment
	// of typical short-form encodes.
	DefaultPrefetchBytes = 1 << 20

	// DefaultPlaybackURLTTL bounds the presigned playback URL lifetime.
	DefaultPlaybackURLTTL = 15 * time.Minute
)

// FactoryConfig holds configuration for the prefetching factory.
type FactoryConfig struct {
	PrefetchBytes  int64
	PlaybackURLTTL time.Duration
}

// DefaultFactoryConfig returns a FactoryConfig with sensible defaults.
func DefaultFactoryConfig() FactoryConfig {
	return FactoryConfig{
		PrefetchBytes:  DefaultPrefetchBytes,
		PlaybackURLTTL: DefaultPlaybackURLTTL,
	}
}

// Factory creates prefetched player controllers backed by media storage.
type Factory struct {
	storage repository.MediaStorage
	config  FactoryConfig
}

// Compile-time verification that Factory implements repository.ControllerFactory.
var _ repository.ControllerFactory = (*Factory)(nil)

// NewFactory creates a new prefetching controller factory.
func NewFactory(storage repository.MediaStorage, cfg FactoryConfig) *Factory {
	if cfg.PrefetchBytes <= 0 {
		cfg.PrefetchBytes = DefaultPrefetchBytes
	}
	if cfg.PlaybackURLTTL <= 0 {
		cfg.PlaybackURLTTL = DefaultPlaybackURLTTL
	}
	return &Factory{
		storage: storage,
		config:  cfg,
	}
}

// Create acquires a controller for the item: it resolves the storage key
// from the media locator, verifies the object, buffers its leading bytes,
// and mints a presigned playback URL. The context deadline bounds the
// whole sequence.
func (f *Factory) Create(ctx context.Context, item model.VideoItem) (model.PlayerController, error) {
	key, err := objectKey(item.MediaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage key: %w", err)
	}

	info, err := f.storage.Stat(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to stat media: %w", err)
	}

	length := f.config.PrefetchBytes
	if info.Size < length {
		length = info.Size
	}

	reader, err := f.storage.DownloadRange(ctx, key, 0, length)
	if err != nil {
		return nil, fmt.Errorf("failed to prefetch media head: %w", err)
	}
	head, err := io.ReadAll(reader)
	closeErr := reader.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read media head: %w", err)
	}
	if closeErr != nil {
		slog.Warn("failed to close prefetch reader", "key", key, "error", closeErr)
	}

	playbackURL, err := f.storage.GeneratePresignedPlaybackURL(ctx, key, f.config.PlaybackURLTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate playback URL: %w", err)
	}

	return &controller{
		videoID:     item.ID,
		playbackURL: playbackURL,
		head:        head,
		size:        info.Size,
	}, nil
}

// objectKey maps a media locator to its storage key. For s3 locators the
// host is the bucket, which the storage client already scopes, so only the
// path matters either way.
func objectKey(locator string) (string, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", err
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", fmt.Errorf("locator %q has no object path", locator)
	}
	return key, nil
}

// controller is a prefetched playback handle. Close is idempotent; the
// buffered head is dropped on the first call.
type controller struct {
	videoID     string
	playbackURL string
	size        int64

	mu      sync.Mutex
	head    []byte
	playing bool
	closed  bool
}

func (c *controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.playing = true
}

func (c *controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = false
}

// Ready reports whether the controller still holds its prefetched media.
func (c *controller) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// PlaybackURL returns the presigned URL for streaming the full object.
func (c *controller) PlaybackURL() string {
	return c.playbackURL
}

// Head returns the prefetched leading bytes, or nil after Close.
func (c *controller) Head() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head
}

// Size returns the total object size in bytes.
func (c *controller) Size() int64 {
	return c.size
}

func (c *controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.playing = false
	c.head = nil
	return nil
}
