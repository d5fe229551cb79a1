package ingestion

import "errors"

var (
	// ErrReaderRequired is returned when a document reader is not provided.
	ErrReaderRequired = errors.New("document reader required")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("max workers must be at least 1")
)
