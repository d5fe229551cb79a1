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

package ingestion

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/skillmatch/core"
)

const (
	// DefaultMaxWorkers bounds concurrent reads.
	DefaultMaxWorkers = 4

	// DefaultParallelThreshold is the file count at which reads go parallel.
	DefaultParallelThreshold = 4
)

// Reader extracts the text of one file. reader.Registry implements it.
type Reader interface {
	Read(ctx context.Context, path string) (string, error)
}

// Skipped records a file left out of the corpus.
type Skipped struct {
	Path   string
	Reason string
}

// Result is the outcome of a read phase.
type Result struct {
	Corpus  core.Corpus
	Skipped []Skipped
}

// SkippedNames returns the base names of skipped files in read order.
func (r Result) SkippedNames() []string {
	if len(r.Skipped) == 0 {
		return nil
	}
	names := make([]string, len(r.Skipped))
	for i, s := range r.Skipped {
		names[i] = filepath.Base(s.Path)
	}
	return names
}

// Coordinator reads document files into a corpus.
type Coordinator struct {
	reader    Reader
	workers   int
	threshold int
	progress  ProgressFunc
	logger    *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator) error

// WithMaxWorkers sets the maximum number of concurrent reads.
// Default is 4.
func WithMaxWorkers(n int) Option {
	return func(c *Coordinator) error {
		if n < 1 {
			return ErrInvalidWorkers
		}
		c.workers = n
		return nil
	}
}

// WithParallelThreshold sets the file count at which reads go parallel.
// Below it files are read one after another. Default is 4.
func WithParallelThreshold(n int) Option {
	return func(c *Coordinator) error {
		if n < 1 {
			n = 1
		}
		c.threshold = n
		return nil
	}
}

// WithProgress sets the function that receives progress after every read.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Coordinator) error {
		c.progress = fn
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger.With("component", "ingestion")
		return nil
	}
}

// NewCoordinator creates a coordinator that reads with reader.
func NewCoordinator(reader Reader, opts ...Option) (*Coordinator, error) {
	if reader == nil {
		return nil, ErrReaderRequired
	}

	c := &Coordinator{
		reader:    reader,
		workers:   DefaultMaxWorkers,
		threshold: DefaultParallelThreshold,
		logger:    slog.Default().With("component", "ingestion"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

type readOutcome struct {
	doc core.Document
	err error
}

// ReadAll reads every path and returns the documents that produced text.
// Document IDs are file base names; a second file with an ID already in the
// corpus is skipped. Progress is reported via the ProgressFunc passed to
// WithProgress, overriding it with report when report is non-nil.
func (c *Coordinator) ReadAll(ctx context.Context, paths []string, report ProgressFunc) Result {
	if report == nil {
		report = c.progress
	}
	tracker := NewProgressTracker(report, len(paths))
	tracker.Start()
	if len(paths) == 0 {
		tracker.Finish()
		return Result{Corpus: core.Corpus{}}
	}

	outcomes := make([]readOutcome, len(paths))
	readOne := func(i int) {
		defer tracker.Increment(1)
		outcomes[i] = c.read(ctx, paths[i])
	}

	if len(paths) < c.threshold {
		for i := range paths {
			readOne(i)
		}
	} else {
		c.readParallel(paths, readOne)
	}

	// Assemble in input order so duplicate resolution is deterministic
	result := Result{Corpus: make(core.Corpus, len(paths))}
	for i, out := range outcomes {
		if out.err == nil {
			out.err = result.Corpus.Add(out.doc)
		}
		if out.err != nil {
			c.logger.Warn("skipping document", "path", paths[i], "err", out.err)
			result.Skipped = append(result.Skipped, Skipped{Path: paths[i], Reason: out.err.Error()})
		}
	}

	c.logger.Info("documents read",
		"total", len(paths),
		"read", result.Corpus.Len(),
		"skipped", len(result.Skipped),
		"elapsed", tracker.Elapsed())
	return result
}

func (c *Coordinator) readParallel(paths []string, readOne func(int)) {
	workers := min(c.workers, len(paths))
	pool, err := ants.NewPool(workers)
	if err != nil {
		c.logger.Warn("worker pool unavailable, reading sequentially", "err", err)
		for i := range paths {
			readOne(i)
		}
		return
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i := range paths {
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			readOne(i)
		}); err != nil {
			wg.Done()
			readOne(i)
		}
	}
	wg.Wait()
}

func (c *Coordinator) read(ctx context.Context, path string) readOutcome {
	text, err := c.reader.Read(ctx, path)
	if err != nil {
		return readOutcome{err: err}
	}
	if strings.TrimSpace(text) == "" {
		return readOutcome{err: core.ErrEmptyContent}
	}

	doc := core.NewDocument(filepath.Base(path), text)
	if err := core.ValidateDocument(doc); err != nil {
		return readOutcome{err: err}
	}
	c.logger.Debug("read document", "id", doc.ID, "bytes", len(text))
	return readOutcome{doc: doc}
}
