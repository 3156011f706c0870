package repository

import (
	"context"
	"io"
	"time"
)

// MediaStorage defines the read-side interface for the object store holding
// feed media. Implementations should be provided by the infrastructure
// layer (e.g., MinIO, S3). The preload pipeline only ever reads.
type MediaStorage interface {
	// Exists checks if a media object exists in the storage.
	Exists(ctx context.Context, key string) (bool, error)

	// Stat returns metadata for a media object.
	// Returns ErrMediaNotFound if the object does not exist.
	Stat(ctx context.Context, key string) (ObjectInfo, error)

	// DownloadRange retrieves length bytes of an object starting at offset.
	// A length of zero reads to the end of the object.
	// Caller is responsible for closing the returned ReadCloser.
	DownloadRange(ctx context.Context, key string, offset, length int64) (io.ReadCloser, error)

	// GeneratePresignedPlaybackURL creates a presigned URL the UI can hand
	// to the playback surface. The URL is valid for the specified duration.
	GeneratePresignedPlaybackURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// ObjectInfo contains metadata about a stored media object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}
