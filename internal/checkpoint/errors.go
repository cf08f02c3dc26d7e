package checkpoint

import "errors"

var (
	// ErrNotFound is returned by Load when no checkpoint has been written yet.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrCheckpointWrite wraps every failure to persist a snapshot.
	// It is never fatal to the crawl.
	ErrCheckpointWrite = errors.New("checkpoint write failed")

	// ErrUnknownFormat is returned by NewStore for unsupported formats.
	ErrUnknownFormat = errors.New("unknown checkpoint format")
)
