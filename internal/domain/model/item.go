package model

import (
	"errors"
	"net/url"
	"time"
)

var (
	ErrEmptyIdentity    = errors.New("video identity cannot be empty")
	ErrEmptyLocator     = errors.New("media locator cannot be empty")
	ErrInvalidLocator   = errors.New("media locator is not a valid URL")
	ErrUnsupportedMedia = errors.New("media locator scheme is not supported")
)

// supportedSchemes lists the locator schemes the player pipeline can decode from.
var supportedSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"s3":    true,
}

// VideoItem represents one discoverable video in the feed.
// It is immutable after creation; Seq is the arrival order assigned
// by the catalog at insertion and is zero until then.
type VideoItem struct {
	ID          string
	MediaURL    string
	Title       string
	Tags        []string
	PublishedAt time.Time
	Seq         uint64
}

// NewVideoItem validates the descriptor fields and builds an item.
// Locator validation here is structural only; the scheduler re-runs
// ValidateLocator as a pre-flight check before every acquisition.
func NewVideoItem(id, mediaURL, title string, tags []string, publishedAt time.Time) (VideoItem, error) {
	if id == "" {
		return VideoItem{}, ErrEmptyIdentity
	}
	if err := ValidateLocator(mediaURL); err != nil {
		return VideoItem{}, err
	}
	return VideoItem{
		ID:          id,
		MediaURL:    mediaURL,
		Title:       title,
		Tags:        tags,
		PublishedAt: publishedAt,
	}, nil
}

// ValidateLocator performs static validation of a media locator without
// any I/O. Acquisition attempts against a locator that fails this check
// are failed immediately instead of being handed to the player factory.
func ValidateLocator(locator string) error {
	if locator == "" {
		return ErrEmptyLocator
	}
	u, err := url.Parse(locator)
	if err != nil {
		return ErrInvalidLocator
	}
	if u.Scheme == "" || u.Host == "" {
		return ErrInvalidLocator
	}
	if !supportedSchemes[u.Scheme] {
		return ErrUnsupportedMedia
	}
	return nil
}
