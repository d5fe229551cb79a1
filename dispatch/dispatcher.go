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

// Package dispatch sends a filtered corpus to the extraction provider in
// paced batches and caches the merged records.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/skillmatch/ai"
	"github.com/poiesic/skillmatch/cache"
	"github.com/poiesic/skillmatch/core"
	"github.com/poiesic/skillmatch/fingerprint"
	"github.com/poiesic/skillmatch/storage"
)

const (
	// DefaultMaxBatchSize is the most documents sent in one extraction call.
	DefaultMaxBatchSize = 15

	// DefaultBatchDelay separates consecutive extraction calls.
	DefaultBatchDelay = time.Second

	// DefaultMaxInFlight keeps dispatch strictly sequential.
	DefaultMaxInFlight = 1
)

// BatchReport describes one completed extraction call. RequestID is the
// value set on the dispatch context with WithRequestID.
type BatchReport struct {
	RequestID string
	Index     int
	Total     int
	Size      int
	Records   int
	Err       error
	Elapsed   time.Duration
}

// BatchObserver receives a report after every batch. Calls are serialized.
type BatchObserver func(BatchReport)

type requestIDKey struct{}

// WithRequestID returns a copy of ctx that tags batch reports with id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Result is the outcome of one dispatch.
type Result struct {
	Records []core.CandidateRecord

	CacheKey string
	CacheHit bool

	BatchesTotal     int
	BatchesSucceeded int
	FailedBatches    []int

	CacheWriteFailed bool
	Elapsed          time.Duration
}

// Dispatcher runs extraction over batches of a corpus.
type Dispatcher struct {
	extractor    ai.Extractor
	cache        *cache.ResultCache
	maxBatchSize int
	delay        time.Duration
	maxInFlight  int
	observer     BatchObserver
	logger       *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher) error

// WithMaxBatchSize sets the most documents per extraction call.
// Default is 15.
func WithMaxBatchSize(n int) Option {
	return func(d *Dispatcher) error {
		if n < 1 {
			return ErrInvalidBatchSize
		}
		d.maxBatchSize = n
		return nil
	}
}

// WithBatchDelay sets the pause between consecutive batch starts.
// Default is 1s.
func WithBatchDelay(delay time.Duration) Option {
	return func(d *Dispatcher) error {
		if delay < 0 {
			return ErrInvalidDelay
		}
		d.delay = delay
		return nil
	}
}

// WithMaxInFlight allows up to n batches to run at once. Batch starts stay
// at least the batch delay apart. Default is 1.
func WithMaxInFlight(n int) Option {
	return func(d *Dispatcher) error {
		if n < 1 {
			return ErrInvalidInFlight
		}
		d.maxInFlight = n
		return nil
	}
}

// WithBatchObserver sets a function notified after every batch.
func WithBatchObserver(fn BatchObserver) Option {
	return func(d *Dispatcher) error {
		d.observer = fn
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger.With("component", "dispatch")
		return nil
	}
}

// NewDispatcher creates a dispatcher that extracts with extractor and
// caches merged records in results.
func NewDispatcher(extractor ai.Extractor, results *cache.ResultCache, opts ...Option) (*Dispatcher, error) {
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	if results == nil {
		return nil, ErrResultCacheRequired
	}

	d := &Dispatcher{
		extractor:    extractor,
		cache:        results,
		maxBatchSize: DefaultMaxBatchSize,
		delay:        DefaultBatchDelay,
		maxInFlight:  DefaultMaxInFlight,
		logger:       slog.Default().With("component", "dispatch"),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

type batchOutcome struct {
	records []core.CandidateRecord
	err     error
}

// Dispatch extracts records for corpus. filterEnabled is the similarity
// filter flag and becomes part of the result key. With force, a cached
// result is invalidated and recomputed.
//
// A failed batch contributes no records and is listed in
// Result.FailedBatches; the remaining batches still run. The merged records
// are cached only when there is at least one.
func (d *Dispatcher) Dispatch(ctx context.Context, corpus core.Corpus, query core.Query, filterEnabled, force bool) Result {
	start := time.Now()
	key := fingerprint.Result(corpus, query, filterEnabled)
	result := Result{CacheKey: key, Records: []core.CandidateRecord{}}

	if force {
		if err := d.cache.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			d.logger.Warn("invalidating cached result failed", "key", key, "err", err)
		}
	} else if records, ok := d.cache.Get(ctx, key); ok {
		d.logger.Info("result cache hit", "key", key, "records", len(records))
		result.Records = records
		result.CacheHit = true
		result.Elapsed = time.Since(start)
		return result
	}

	batches := Partition(corpus, d.maxBatchSize)
	result.BatchesTotal = len(batches)
	if len(batches) == 0 {
		result.Elapsed = time.Since(start)
		return result
	}

	d.logger.Info("dispatching batches",
		"documents", corpus.Len(),
		"batches", len(batches),
		"max_batch_size", d.maxBatchSize,
		"max_in_flight", d.maxInFlight)

	var outcomes []batchOutcome
	if d.maxInFlight > 1 && len(batches) > 1 {
		outcomes = d.runPooled(ctx, batches, query)
	} else {
		outcomes = d.runSequential(ctx, batches, query)
	}

	for i, out := range outcomes {
		if out.err != nil {
			result.FailedBatches = append(result.FailedBatches, i)
			continue
		}
		result.BatchesSucceeded++
		result.Records = append(result.Records, out.records...)
	}

	if len(result.Records) > 0 {
		if err := d.cache.Put(ctx, key, result.Records); err != nil {
			d.logger.Warn("caching result failed", "key", key, "err", err)
			result.CacheWriteFailed = true
		}
	}

	result.Elapsed = time.Since(start)
	d.logger.Info("dispatch complete",
		"batches", result.BatchesTotal,
		"succeeded", result.BatchesSucceeded,
		"records", len(result.Records),
		"elapsed", result.Elapsed)
	return result
}

// runSequential runs each batch to completion, pausing between them.
func (d *Dispatcher) runSequential(ctx context.Context, batches []core.Corpus, query core.Query) []batchOutcome {
	outcomes := make([]batchOutcome, len(batches))
	var mu sync.Mutex
	for i, batch := range batches {
		if i > 0 {
			if err := d.pause(ctx); err != nil {
				for j := i; j < len(batches); j++ {
					outcomes[j] = batchOutcome{err: err}
					d.report(&mu, RequestID(ctx), j, len(batches), batches[j], outcomes[j], 0)
				}
				break
			}
		}
		outcomes[i] = d.runBatch(ctx, &mu, i, len(batches), batch, query)
	}
	return outcomes
}

// runPooled runs up to maxInFlight batches at once through an ants pool,
// starting them no closer than the batch delay.
func (d *Dispatcher) runPooled(ctx context.Context, batches []core.Corpus, query core.Query) []batchOutcome {
	pool, err := ants.NewPool(d.maxInFlight)
	if err != nil {
		d.logger.Warn("batch pool unavailable, dispatching sequentially", "err", err)
		return d.runSequential(ctx, batches, query)
	}
	defer pool.Release()

	outcomes := make([]batchOutcome, len(batches))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i, batch := range batches {
		if i > 0 {
			if err := d.pause(ctx); err != nil {
				for j := i; j < len(batches); j++ {
					outcomes[j] = batchOutcome{err: err}
					d.report(&mu, RequestID(ctx), j, len(batches), batches[j], outcomes[j], 0)
				}
				break
			}
		}
		wg.Add(1)
		task := func() {
			defer wg.Done()
			outcomes[i] = d.runBatch(ctx, &mu, i, len(batches), batch, query)
		}
		if err := pool.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()
	return outcomes
}

func (d *Dispatcher) runBatch(ctx context.Context, mu *sync.Mutex, i, total int, batch core.Corpus, query core.Query) batchOutcome {
	start := time.Now()
	records, err := d.extractor.Extract(ctx, batch, query)
	out := batchOutcome{records: records, err: err}
	elapsed := time.Since(start)

	requestID := RequestID(ctx)
	if err != nil {
		d.logger.Warn("batch failed", "request_id", requestID, "batch", i+1, "of", total, "documents", batch.Len(), "err", err)
	} else {
		d.logger.Debug("batch complete", "request_id", requestID, "batch", i+1, "of", total, "records", len(records), "elapsed", elapsed)
	}
	d.report(mu, requestID, i, total, batch, out, elapsed)
	return out
}

func (d *Dispatcher) report(mu *sync.Mutex, requestID string, i, total int, batch core.Corpus, out batchOutcome, elapsed time.Duration) {
	if d.observer == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	d.observer(BatchReport{
		RequestID: requestID,
		Index:     i,
		Total:     total,
		Size:      batch.Len(),
		Records:   len(out.records),
		Err:       out.err,
		Elapsed:   elapsed,
	})
}

// pause waits for the batch delay or until ctx is done.
func (d *Dispatcher) pause(ctx context.Context) error {
	if d.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
