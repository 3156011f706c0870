package repository

import (
	"context"
	"time"
)

// VideoAnnouncement is the wire form of a newly discoverable video pushed
// by the feed event source. Arrival order carries no guarantee; catalog
// order is simply call order, deduplicated by VideoID.
type VideoAnnouncement struct {
	VideoID     string    `json:"video_id"`
	MediaURL    string    `json:"media_url"`
	Title       string    `json:"title"`
	Tags        []string  `json:"tags,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// FeedSource defines the interface for the feed event stream.
// Implementations should be provided by the infrastructure layer (e.g., RabbitMQ).
type FeedSource interface {
	// PublishAnnouncement sends a video announcement to the stream.
	// Used by tooling and tests; the client itself only consumes.
	PublishAnnouncement(ctx context.Context, a VideoAnnouncement) error

	// ConsumeAnnouncements delivers announcements to the handler in call
	// order until ctx is cancelled or the stream closes.
	ConsumeAnnouncements(ctx context.Context, handler func(a VideoAnnouncement) error) error

	// Close gracefully closes the connection to the event stream.
	Close() error
}
