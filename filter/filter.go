// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package filter narrows a corpus to the documents semantically close to a
// query before extraction.
//
// Documents are chunked and embedded once per corpus; the resulting index is
// cached under the corpus fingerprint. A query is embedded, the best chunks
// are retrieved, and every document is scored by the mean similarity of its
// retrieved chunks. The filter only ever narrows on positive evidence: when
// it is disabled, degraded, or finds nothing, the input corpus is returned
// unchanged.
package filter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/skillmatch/ai"
	"github.com/poiesic/skillmatch/core"
	"github.com/poiesic/skillmatch/fingerprint"
	"github.com/poiesic/skillmatch/index"
)

// DefaultThreshold is the minimum mean chunk similarity a document needs.
const DefaultThreshold = 0.3

// Fallback reasons reported in Result.Fallback.
const (
	FallbackEmptyQuery  = "empty query"
	FallbackEmptyCorpus = "empty corpus"
	FallbackEmbedding   = "embedding unavailable"
	FallbackSearch      = "index search failed"
	FallbackNoMatches   = "no document met the similarity threshold"
)

// Result is the outcome of one filter pass.
type Result struct {
	// Corpus is the narrowed corpus, or the input corpus on fallback.
	Corpus core.Corpus

	// IndexCacheHit is true when the similarity index was loaded from cache.
	IndexCacheHit bool

	// Fallback is empty when the filter narrowed the corpus (or is disabled)
	// and otherwise names why the input corpus was passed through.
	Fallback string

	// Scores holds the mean chunk similarity of each retrieved document.
	Scores map[string]float64
}

// Filter is the similarity pre-filter.
type Filter struct {
	embedder  ai.Embedder
	cache     *index.Cache
	chunker   *index.Chunker
	threshold float64
	topK      int
	enabled   bool
	logger    *slog.Logger
}

// Option configures a Filter.
type Option func(*Filter) error

// WithEnabled turns the filter on or off. Default is on.
func WithEnabled(enabled bool) Option {
	return func(f *Filter) error {
		f.enabled = enabled
		return nil
	}
}

// WithThreshold sets the minimum mean similarity for a document to be kept.
// Default is 0.3.
func WithThreshold(threshold float64) Option {
	return func(f *Filter) error {
		if threshold < -1 || threshold > 1 {
			return ErrInvalidThreshold
		}
		f.threshold = threshold
		return nil
	}
}

// WithTopK limits retrieval to the k best chunks. 0 retrieves every chunk.
func WithTopK(k int) Option {
	return func(f *Filter) error {
		if k < 0 {
			return ErrInvalidTopK
		}
		f.topK = k
		return nil
	}
}

// WithChunker replaces the default 512/50 word chunker.
func WithChunker(c *index.Chunker) Option {
	return func(f *Filter) error {
		if c == nil {
			return ErrChunkerRequired
		}
		f.chunker = c
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(f *Filter) error {
		if logger == nil {
			logger = slog.Default()
		}
		f.logger = logger.With("component", "filter")
		return nil
	}
}

// New creates a filter. A nil embedder yields a filter that is never
// enabled; indexCache is always required.
func New(embedder ai.Embedder, indexCache *index.Cache, opts ...Option) (*Filter, error) {
	if indexCache == nil {
		return nil, ErrIndexCacheRequired
	}

	chunker, err := index.NewChunker(index.DefaultChunkSize, index.DefaultChunkOverlap)
	if err != nil {
		return nil, err
	}

	f := &Filter{
		embedder:  embedder,
		cache:     indexCache,
		chunker:   chunker,
		threshold: DefaultThreshold,
		enabled:   true,
		logger:    slog.Default().With("component", "filter"),
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Enabled reports whether the filter can narrow a corpus. It feeds the
// filter flag of the result fingerprint.
func (f *Filter) Enabled() bool {
	return f.enabled && f.embedder != nil
}

// Apply narrows corpus to the documents relevant to query. With force, a
// cached index is ignored and overwritten.
func (f *Filter) Apply(ctx context.Context, corpus core.Corpus, query core.Query, force bool) Result {
	passthrough := func(reason string, hit bool) Result {
		if reason != "" {
			f.logger.Warn("similarity filter fell back to full corpus",
				"reason", reason, "documents", corpus.Len())
		}
		return Result{Corpus: corpus, IndexCacheHit: hit, Fallback: reason}
	}

	switch {
	case !f.Enabled():
		f.logger.Debug("similarity filter disabled")
		return passthrough("", false)
	case query.IsEmpty():
		return passthrough(FallbackEmptyQuery, false)
	case corpus.Len() == 0:
		return passthrough(FallbackEmptyCorpus, false)
	}

	start := time.Now()
	ix, hit, err := f.loadIndex(ctx, corpus, force)
	if err != nil {
		f.logger.Warn("building similarity index failed", "err", err)
		return passthrough(FallbackEmbedding, false)
	}

	qvec, err := f.embedder.EmbedText(ctx, query.EmbeddingText())
	if err != nil {
		f.logger.Warn("embedding query failed", "err", err)
		return passthrough(FallbackEmbedding, false)
	}

	hits, err := ix.Search(ctx, qvec, f.topK)
	if err != nil && hit {
		// A cached index embedded by another model has vectors of a
		// different dimension than qvec.
		f.logger.Warn("cached similarity index unusable, rebuilding", "err", err)
		ix, hit, err = f.rebuildIndex(ctx, corpus)
		if err != nil {
			f.logger.Warn("rebuilding similarity index failed", "err", err)
			return passthrough(FallbackEmbedding, false)
		}
		hits, err = ix.Search(ctx, qvec, f.topK)
	}
	if err != nil {
		f.logger.Warn("searching similarity index failed", "err", err)
		return passthrough(FallbackSearch, hit)
	}

	scores := meanScores(hits)
	kept := make(core.Corpus, len(scores))
	for id, score := range scores {
		doc, ok := corpus[id]
		if !ok || score < f.threshold {
			continue
		}
		kept[id] = doc
	}

	if kept.Len() == 0 {
		r := passthrough(FallbackNoMatches, hit)
		r.Scores = scores
		return r
	}

	f.logger.Info("similarity filter applied",
		"documents", corpus.Len(),
		"kept", kept.Len(),
		"chunks", ix.Len(),
		"index_cache_hit", hit,
		"elapsed", time.Since(start))
	return Result{Corpus: kept, IndexCacheHit: hit, Scores: scores}
}

// loadIndex returns the cached index for corpus or builds and caches one.
func (f *Filter) loadIndex(ctx context.Context, corpus core.Corpus, force bool) (*index.Index, bool, error) {
	key := fingerprint.Index(corpus)
	if !force {
		if ix, ok := f.cache.Get(ctx, key); ok {
			return ix, true, nil
		}
	}

	chunks := f.chunker.SplitCorpus(corpus)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := f.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, false, fmt.Errorf("embed %d chunks: %w", len(chunks), err)
	}

	ix, err := index.Build(ctx, chunks, vectors)
	if err != nil {
		return nil, false, err
	}

	if err := f.cache.Put(ctx, key, ix); err != nil {
		f.logger.Warn("caching similarity index failed", "key", key, "err", err)
	}
	f.logger.Debug("similarity index built", "key", key, "chunks", len(chunks))
	return ix, false, nil
}

// rebuildIndex drops the cached index for corpus and builds a fresh one.
func (f *Filter) rebuildIndex(ctx context.Context, corpus core.Corpus) (*index.Index, bool, error) {
	key := fingerprint.Index(corpus)
	if err := f.cache.Delete(ctx, key); err != nil {
		f.logger.Warn("evicting similarity index failed", "key", key, "err", err)
	}
	return f.loadIndex(ctx, corpus, true)
}

// meanScores averages hit scores per document.
func meanScores(hits []index.Hit) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, h := range hits {
		sums[h.Chunk.DocumentID] += float64(h.Score)
		counts[h.Chunk.DocumentID]++
	}
	for id, sum := range sums {
		sums[id] = sum / float64(counts[id])
	}
	return sums
}
