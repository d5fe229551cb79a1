package ai

import (
	"context"

	"github.com/poiesic/skillmatch/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Extractor screens a batch of documents against a query and returns one
// record per matched document.
// Implementations must be thread-safe for concurrent use.
type Extractor interface {
	// Extract returns records for the documents in batch that match query.
	// Every returned record's SourceID names a document of batch. A document
	// that does not match produces no record. An empty result is not an
	// error.
	Extract(ctx context.Context, batch core.Corpus, query core.Query) ([]core.CandidateRecord, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Extractor returns the batch extraction service.
	// The returned Extractor is safe for concurrent use.
	Extractor() Extractor

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, batch core.Corpus, query core.Query) ([]core.CandidateRecord, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, batch core.Corpus, query core.Query) ([]core.CandidateRecord, error) {
	return f(ctx, batch, query)
}
