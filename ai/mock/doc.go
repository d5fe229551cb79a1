// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Extractor,
// and ai.AIProvider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	vector, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	mockExtractor := mock.NewMockExtractor()
//	mockExtractor.ExtractFunc = func(ctx context.Context, batch core.Corpus, q core.Query) ([]core.CandidateRecord, error) {
//	    return nil, errors.New("rate limited")
//	}
//
//	// Check call counts
//	count := mockExtractor.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - NewKeywordEmbedder: Bag-of-words vectors over a fixed vocabulary
//   - MockExtractor: One record per document mentioning a query term
//   - MockProvider: Aggregates mock embedder and extractor
//
// All mocks are safe for concurrent use.
package mock
