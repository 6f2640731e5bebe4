package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so that callers can use
// errors.Is() while users still get a readable message.
var (
	// ErrNoSeedURL is returned when base_url is empty.
	ErrNoSeedURL = errors.New("no seed url specified: set base_url in the configuration file")

	// ErrInvalidSeedURL is returned when base_url is not an http or https URL.
	ErrInvalidSeedURL = errors.New("invalid seed url: must start with http:// or https://")

	// ErrInvalidMaxDepth is returned when max_depth is negative.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidDelay is returned when the crawl delay is negative.
	// Use 0 for no delay between requests.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidTimeout is returned when a fetch, LLM or search timeout is
	// not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidRetries is returned when search.retries is negative.
	ErrInvalidRetries = errors.New("invalid search retries: must be non-negative")

	// ErrInvalidDepthKey is returned when depth_settings has a negative key.
	ErrInvalidDepthKey = errors.New("invalid depth_settings key: depths are non-negative")

	// ErrConfigNotFound is returned when an explicitly requested
	// configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidURLSettings is returned when url_settings is neither a
	// mapping nor a list of rules.
	ErrInvalidURLSettings = errors.New("invalid url_settings: expected a mapping or a list of rules")
)
