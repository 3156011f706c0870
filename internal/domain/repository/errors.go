package repository

import "errors"

var (
	// ErrItemNotFound is returned when a video identity is not in the catalog.
	ErrItemNotFound = errors.New("video item not found")

	// ErrMediaNotFound is returned when a media object does not exist in storage.
	ErrMediaNotFound = errors.New("media object not found")
)
