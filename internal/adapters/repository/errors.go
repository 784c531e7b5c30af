package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound         = errors.New("model not found")
	ErrInvalidLimit     = errors.New("invalid ranking limit")
	ErrCacheUnavailable = errors.New("cache unavailable")
	ErrSnapshotFile     = errors.New("snapshot file")
)
