package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/skillmatch/core"
)

// MockExtractor is a test double for ai.Extractor.
// It allows custom behavior injection via function fields.
type MockExtractor struct {
	// ExtractFunc is called by Extract if set.
	// If nil, uses default keyword matching.
	ExtractFunc func(ctx context.Context, batch core.Corpus, query core.Query) ([]core.CandidateRecord, error)

	mu        sync.Mutex
	callCount int
	batches   []core.Corpus
}

// NewMockExtractor creates a mock extractor with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockExtractor().
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

// Extract returns one record per document mentioning any query term.
// Default behavior: case-insensitive substring matching, with match_score
// set to the percentage of terms found.
func (m *MockExtractor) Extract(ctx context.Context, batch core.Corpus, query core.Query) ([]core.CandidateRecord, error) {
	m.mu.Lock()
	m.callCount++
	m.batches = append(m.batches, batch)
	fn := m.ExtractFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, batch, query)
	}
	return KeywordRecords(batch, query), nil
}

// KeywordRecords is the default extraction used by MockExtractor.
func KeywordRecords(batch core.Corpus, query core.Query) []core.CandidateRecord {
	terms := query.Normalized()
	records := make([]core.CandidateRecord, 0, batch.Len())
	for _, doc := range batch.Documents() {
		content := strings.ToLower(doc.Content)
		var matched []any
		for _, term := range terms {
			if strings.Contains(content, term) {
				matched = append(matched, term)
			}
		}
		if len(matched) == 0 {
			continue
		}
		records = append(records, core.CandidateRecord{
			SourceID: doc.ID,
			Fields: map[string]any{
				"top_5_technical_skills": matched,
				"match_score":            float64(100 * len(matched) / len(terms)),
			},
		})
	}
	return records
}

// CallCount returns the number of times Extract was called.
func (m *MockExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Batches returns the batches passed to Extract, in call order.
func (m *MockExtractor) Batches() []core.Corpus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Corpus(nil), m.batches...)
}

// Reset clears the call count, recorded batches and custom functions.
func (m *MockExtractor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.batches = nil
	m.ExtractFunc = nil
}
