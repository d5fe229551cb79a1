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

// Package pipeline runs one match request through ingestion, similarity
// filtering and batch dispatch.
//
// Each request moves strictly forward through the stages
// start, ingested, filtered, dispatched and done, and may finish early
// after any of the first three when there is nothing left to process.
// Only input errors are returned as errors. Every other problem is
// recovered and described in the request's core.Telemetry.
package pipeline

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/poiesic/skillmatch/core"
	"github.com/poiesic/skillmatch/dispatch"
	"github.com/poiesic/skillmatch/filter"
	"github.com/poiesic/skillmatch/ingestion"
)

var (
	// ErrCoordinatorRequired is returned when no ingestion coordinator is provided.
	ErrCoordinatorRequired = errors.New("ingestion coordinator required")

	// ErrFilterRequired is returned when no similarity filter is provided.
	ErrFilterRequired = errors.New("similarity filter required")

	// ErrDispatcherRequired is returned when no batch dispatcher is provided.
	ErrDispatcherRequired = errors.New("batch dispatcher required")
)

// Request is one match request.
type Request struct {
	// Dir is the directory holding candidate documents.
	Dir string `json:"dir_path"`

	// Paths lists files to read instead of listing Dir.
	Paths []string `json:"paths,omitempty"`

	// Query is the comma separated list of required skills.
	Query string `json:"query"`

	// Force ignores cached indexes and results.
	Force bool `json:"force"`
}

// Result is the outcome of one request.
type Result struct {
	Records   []core.CandidateRecord `json:"records"`
	Telemetry core.Telemetry         `json:"telemetry"`
}

// Orchestrator drives requests through the pipeline stages.
// It is safe for concurrent use.
type Orchestrator struct {
	ingest     *ingestion.Coordinator
	filter     *filter.Filter
	dispatcher *dispatch.Dispatcher
	supports   func(ext string) bool
	observer   Observer
	logger     *slog.Logger

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithObserver sets the observer notified of request events.
// Default is a NoopObserver.
func WithObserver(o Observer) Option {
	return func(p *Orchestrator) error {
		if o == nil {
			o = NoopObserver{}
		}
		p.observer = o
		return nil
	}
}

// WithSupportedExtensions sets which file extensions are listed from a
// request directory. Default accepts every extension.
func WithSupportedExtensions(supports func(ext string) bool) Option {
	return func(p *Orchestrator) error {
		if supports != nil {
			p.supports = supports
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "pipeline")
		return nil
	}
}

// New creates an orchestrator over the three pipeline phases.
func New(coordinator *ingestion.Coordinator, f *filter.Filter, dispatcher *dispatch.Dispatcher, opts ...Option) (*Orchestrator, error) {
	if coordinator == nil {
		return nil, ErrCoordinatorRequired
	}
	if f == nil {
		return nil, ErrFilterRequired
	}
	if dispatcher == nil {
		return nil, ErrDispatcherRequired
	}

	p := &Orchestrator{
		ingest:     coordinator,
		filter:     f,
		dispatcher: dispatcher,
		supports:   func(string) bool { return true },
		observer:   NoopObserver{},
		logger:     slog.Default().With("component", "pipeline"),
		entropy:    ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Orchestrator) newRequestID() string {
	p.entropyMu.Lock()
	defer p.entropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), p.entropy).String()
}

// Run processes req. The returned error is non-nil only when the request
// cannot start: core.ErrEmptyQuery, core.ErrDirectoryNotFound,
// core.ErrNotADirectory, or a directory that cannot be listed. In that case
// the telemetry stage is core.StageStart and no records are returned.
func (p *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	res := Result{
		Records:   []core.CandidateRecord{},
		Telemetry: core.Telemetry{RequestID: p.newRequestID(), Stage: core.StageStart},
	}
	tel := &res.Telemetry
	logger := p.logger.With("request_id", tel.RequestID)
	ctx = dispatch.WithRequestID(ctx, tel.RequestID)

	finish := func(err error) (Result, error) {
		tel.Elapsed = core.Seconds(time.Since(start))
		p.observer.Finish(res, err)
		return res, err
	}

	query := core.ParseQuery(req.Query)
	if err := core.ValidateQuery(query); err != nil {
		return finish(err)
	}

	paths, skipped, err := p.resolvePaths(req, logger)
	if err != nil {
		return finish(err)
	}
	p.observer.Start(tel.RequestID, req)

	// Ingested
	read := p.ingest.ReadAll(ctx, paths, func(pr ingestion.Progress) {
		p.observer.DocumentRead(tel.RequestID, pr)
	})
	skipped = append(skipped, read.SkippedNames()...)
	tel.SkippedDocuments = skipped
	tel.TotalDocuments = read.Corpus.Len()
	tel.Stage = core.StageIngested
	p.observer.AfterIngestion(tel.RequestID, read.Corpus.Len(), skipped)

	if read.Corpus.Len() == 0 {
		logger.Info("no readable documents", "files", len(paths), "skipped", len(skipped))
		return finish(nil)
	}

	// Filtered
	enabled := p.filter.Enabled()
	filtered := p.filter.Apply(ctx, read.Corpus, query, req.Force)
	tel.IndexCacheHit = filtered.IndexCacheHit
	tel.FilterFallback = filtered.Fallback
	tel.FilteredDocuments = filtered.Corpus.Len()
	tel.Stage = core.StageFiltered
	p.observer.AfterFilter(tel.RequestID, enabled, filtered)

	if filtered.Corpus.Len() == 0 {
		logger.Info("nothing to dispatch after filtering")
		return finish(nil)
	}

	// Dispatched
	dispatched := p.dispatcher.Dispatch(ctx, filtered.Corpus, query, enabled, req.Force)
	res.Records = dispatched.Records
	tel.ResultCacheHit = dispatched.CacheHit
	tel.CacheKey = dispatched.CacheKey
	tel.BatchesTotal = dispatched.BatchesTotal
	tel.BatchesSucceeded = dispatched.BatchesSucceeded
	tel.FailedBatches = dispatched.FailedBatches
	tel.CacheWriteFailed = dispatched.CacheWriteFailed
	tel.DispatchElapsed = core.Seconds(dispatched.Elapsed)
	tel.Stage = core.StageDispatched
	p.observer.AfterDispatch(tel.RequestID, dispatched)

	tel.Stage = core.StageDone
	return finish(nil)
}

// resolvePaths returns the files to read for req, along with the names of
// listed files that were skipped as unsupported.
func (p *Orchestrator) resolvePaths(req Request, logger *slog.Logger) ([]string, []string, error) {
	if len(req.Paths) > 0 {
		paths := slices.Clone(req.Paths)
		return paths, nil, nil
	}
	if strings.TrimSpace(req.Dir) == "" {
		return nil, nil, fmt.Errorf("%w: no directory given", core.ErrDirectoryNotFound)
	}

	listing, err := ingestion.ListDocuments(req.Dir, p.supports, logger)
	if err != nil {
		return nil, nil, err
	}
	var skipped []string
	for _, s := range listing.Skipped {
		skipped = append(skipped, filepath.Base(s.Path))
	}
	return listing.Paths, skipped, nil
}
