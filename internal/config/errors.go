package config

import "errors"

// Configuration validation errors.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoListenAddress is returned when the listen address is empty.
	ErrNoListenAddress = errors.New("no listen address configured")

	// ErrNoDBDir is returned when the database directory is empty.
	ErrNoDBDir = errors.New("no database directory configured")

	// ErrInvalidTimeout is returned when the fetch timeout is not positive.
	// A timeout of zero or negative would cause immediate request failures.
	ErrInvalidTimeout = errors.New("invalid fetch timeout: must be positive")

	// ErrInvalidFetchLimit is returned when the fetch limit is not
	// positive. Zero concurrency would stall every scan.
	ErrInvalidFetchLimit = errors.New("invalid fetch limit: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to fall back to the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")
)
