package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoAllowedDomain is returned when neither allowed domains nor a
	// special host is configured. Every URL would be rejected.
	ErrNoAllowedDomain = errors.New("no allowed domain: configure allowed_domains or special_host")

	// ErrInvalidMaxURLLength is returned when the URL length limit is not positive.
	ErrInvalidMaxURLLength = errors.New("invalid max URL length: must be positive")

	// ErrInvalidMaxPathSegments is returned when the path segment limit is not positive.
	ErrInvalidMaxPathSegments = errors.New("invalid max path segments: must be positive")

	// ErrInvalidMaxQueryParams is returned when the query parameter limit is not positive.
	ErrInvalidMaxQueryParams = errors.New("invalid max query params: must be positive")

	// ErrInvalidThreshold is returned when a similarity threshold is outside (0, 1].
	ErrInvalidThreshold = errors.New("invalid similarity threshold: must be in (0, 1]")

	// ErrInvalidCapacity is returned when a recent-history window capacity is not positive.
	ErrInvalidCapacity = errors.New("invalid window capacity: must be positive")

	// ErrInvalidMinTextLength is returned when the minimum text length is negative.
	ErrInvalidMinTextLength = errors.New("invalid min text length: must be non-negative")

	// ErrInvalidCheckpointEvery is returned when the checkpoint cadence is not positive.
	ErrInvalidCheckpointEvery = errors.New("invalid checkpoint interval: must be positive")

	// ErrNoCheckpointPath is returned when no checkpoint location is configured.
	ErrNoCheckpointPath = errors.New("no checkpoint path specified")

	// ErrInvalidCheckpointFormat is returned for formats other than sqlite and json.
	ErrInvalidCheckpointFormat = errors.New("invalid checkpoint format: must be sqlite or json")

	// ErrInvalidConcurrency is returned when the worker count is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidTopWords is returned when the report word count is negative.
	ErrInvalidTopWords = errors.New("invalid top words: must be non-negative")
)
