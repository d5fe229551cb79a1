package dispatch

import "errors"

var (
	// ErrExtractorRequired is returned when a dispatcher is created without an extractor.
	ErrExtractorRequired = errors.New("extractor required")

	// ErrResultCacheRequired is returned when a dispatcher is created without a result cache.
	ErrResultCacheRequired = errors.New("result cache required")

	// ErrInvalidBatchSize is returned for a batch size below 1.
	ErrInvalidBatchSize = errors.New("max batch size must be at least 1")

	// ErrInvalidDelay is returned for a negative batch delay.
	ErrInvalidDelay = errors.New("batch delay must not be negative")

	// ErrInvalidInFlight is returned for an in-flight limit below 1.
	ErrInvalidInFlight = errors.New("max in-flight batches must be at least 1")
)
