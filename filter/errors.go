package filter

import "errors"

var (
	// ErrIndexCacheRequired is returned when a filter is created without an index cache.
	ErrIndexCacheRequired = errors.New("index cache required")

	// ErrInvalidThreshold is returned for a similarity threshold outside [-1, 1].
	ErrInvalidThreshold = errors.New("similarity threshold must be within [-1, 1]")

	// ErrInvalidTopK is returned for a negative top-K.
	ErrInvalidTopK = errors.New("top-k must not be negative")

	// ErrChunkerRequired is returned when WithChunker is given nil.
	ErrChunkerRequired = errors.New("chunker required")
)
