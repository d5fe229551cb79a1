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

// Package skillmatch wires the matching pipeline together from a
// config.Config.
package skillmatch

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/skillmatch/ai"
	"github.com/poiesic/skillmatch/ai/providers"
	"github.com/poiesic/skillmatch/cache"
	"github.com/poiesic/skillmatch/config"
	"github.com/poiesic/skillmatch/dispatch"
	"github.com/poiesic/skillmatch/filter"
	"github.com/poiesic/skillmatch/index"
	"github.com/poiesic/skillmatch/ingestion"
	"github.com/poiesic/skillmatch/metrics"
	"github.com/poiesic/skillmatch/pipeline"
	"github.com/poiesic/skillmatch/reader"
	"github.com/poiesic/skillmatch/server"
	"github.com/poiesic/skillmatch/storage"
)

// Matcher owns every resource a running matcher needs.
type Matcher struct {
	stores       *openedStores
	indexCache   *index.Cache
	resultCache  *cache.ResultCache
	provider     ai.AIProvider
	orchestrator *pipeline.Orchestrator
	logger       *slog.Logger
}

var _ server.Service = (*Matcher)(nil)

// MatcherOption configures a Matcher.
type MatcherOption func(*matcherOptions)

type matcherOptions struct {
	provider  ai.AIProvider
	metrics   *metrics.Metrics
	observers []pipeline.Observer
	logger    *slog.Logger
}

// WithProvider uses provider instead of building one from the ai section.
// The Matcher takes ownership and closes it.
func WithProvider(provider ai.AIProvider) MatcherOption {
	return func(o *matcherOptions) {
		o.provider = provider
	}
}

// WithMetrics records pipeline events in m.
func WithMetrics(m *metrics.Metrics) MatcherOption {
	return func(o *matcherOptions) {
		o.metrics = m
	}
}

// WithObserver adds an observer of pipeline events.
func WithObserver(obs pipeline.Observer) MatcherOption {
	return func(o *matcherOptions) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) MatcherOption {
	return func(o *matcherOptions) {
		o.logger = logger
	}
}

// New opens the cache stores and AI provider described by cfg and
// assembles the pipeline. Close releases them.
func New(ctx context.Context, cfg config.Config, opts ...MatcherOption) (*Matcher, error) {
	options := &matcherOptions{}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stores, err := openStores(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}

	m := &Matcher{stores: stores, logger: logger.With("component", "matcher")}
	if err := m.assemble(cfg, options, logger); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

func (m *Matcher) assemble(cfg config.Config, options *matcherOptions, logger *slog.Logger) error {
	var err error
	m.indexCache, err = index.NewCache(m.stores.byTier[storage.TierIndex], cache.WithLogger(logger))
	if err != nil {
		return err
	}
	m.resultCache, err = cache.NewResultCache(m.stores.byTier[storage.TierResult], cache.WithLogger(logger))
	if err != nil {
		return err
	}

	m.provider = options.provider
	if m.provider == nil {
		if m.provider, err = providers.New(cfg.AI.ToAI()); err != nil {
			return err
		}
	}

	registry := reader.NewRegistry()
	extensions := normalizeExtensions(cfg.Ingestion.Extensions)
	supports := func(ext string) bool {
		return slices.Contains(extensions, strings.ToLower(ext)) && registry.Supports(ext)
	}

	coordinator, err := ingestion.NewCoordinator(registry,
		ingestion.WithMaxWorkers(cfg.Ingestion.MaxWorkers),
		ingestion.WithParallelThreshold(cfg.Ingestion.ParallelThreshold),
		ingestion.WithLogger(logger))
	if err != nil {
		return err
	}

	chunker, err := index.NewChunker(cfg.Filter.ChunkSize, cfg.Filter.ChunkOverlap)
	if err != nil {
		return err
	}
	f, err := filter.New(m.provider.Embedder(), m.indexCache,
		filter.WithEnabled(cfg.Filter.Enabled),
		filter.WithThreshold(cfg.Filter.Threshold),
		filter.WithTopK(cfg.Filter.TopK),
		filter.WithChunker(chunker),
		filter.WithLogger(logger))
	if err != nil {
		return err
	}

	observer := pipeline.MultiObserver{pipeline.NewLogObserver(logger)}
	if options.metrics != nil {
		observer = append(observer, options.metrics)
	}
	observer = append(observer, options.observers...)

	dispatcher, err := dispatch.NewDispatcher(m.provider.Extractor(), m.resultCache,
		dispatch.WithMaxBatchSize(cfg.Dispatch.MaxBatchSize),
		dispatch.WithBatchDelay(cfg.Dispatch.BatchDelay),
		dispatch.WithMaxInFlight(cfg.Dispatch.MaxInFlight),
		dispatch.WithBatchObserver(observer.BatchCompleted),
		dispatch.WithLogger(logger))
	if err != nil {
		return err
	}

	m.orchestrator, err = pipeline.New(coordinator, f, dispatcher,
		pipeline.WithObserver(observer),
		pipeline.WithSupportedExtensions(supports),
		pipeline.WithLogger(logger))
	return err
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

// Match runs one request through the pipeline.
func (m *Matcher) Match(ctx context.Context, req pipeline.Request) (pipeline.Result, error) {
	return m.orchestrator.Run(ctx, req)
}

// ClearCache removes the entry key from tier. An empty key clears the whole
// tier and an empty tier applies to every tier.
func (m *Matcher) ClearCache(ctx context.Context, tier storage.Tier, key string) error {
	tiers := storage.Tiers
	if tier != "" {
		if err := tier.Validate(); err != nil {
			return err
		}
		tiers = []storage.Tier{tier}
	}

	var errs []error
	for _, t := range tiers {
		store := m.stores.byTier[t]
		var err error
		if key == "" {
			err = store.Clear(ctx)
		} else {
			err = store.Delete(ctx, key)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases the provider and the cache stores.
func (m *Matcher) Close() error {
	var errs []error
	if m.provider != nil {
		if err := m.provider.Close(); err != nil {
			m.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if err := m.stores.Close(); err != nil {
		m.logger.Error("error closing cache stores", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
