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
	"fmt"
	"io"
	"sync"
	"time"
)

// Progress is a snapshot of an in-flight read phase.
type Progress struct {
	Done    int
	Total   int
	Elapsed time.Duration

	// ETA is the projected time remaining, zero until the first read
	// completes.
	ETA time.Duration
}

// Percent returns completion as a percentage.
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 100
	}
	return float64(p.Done) / float64(p.Total) * 100.0
}

// ProgressFunc receives progress snapshots. It may be called from worker
// goroutines but never concurrently.
type ProgressFunc func(Progress)

// ProgressTracker tracks and reports progress of a read phase.
type ProgressTracker struct {
	report    ProgressFunc
	total     int
	current   int
	startTime time.Time
	started   bool
	mu        sync.Mutex
}

// NewProgressTracker creates a new progress tracker.
// report: called after every change; nil disables reporting
// total: total number of items to process
func NewProgressTracker(report ProgressFunc, total int) *ProgressTracker {
	return &ProgressTracker{
		report: report,
		total:  total,
	}
}

// Start begins tracking progress.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.current = 0
}

// Increment increases the current progress by the specified amount.
func (p *ProgressTracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current += delta
	if p.current > p.total {
		p.current = p.total
	}
	p.emit()
}

// Finish marks the operation as complete and reports final progress.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current = p.total
	p.emit()
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}

	return time.Since(p.startTime)
}

// Snapshot returns the current progress.
func (p *ProgressTracker) Snapshot() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

// snapshot must be called with lock held.
func (p *ProgressTracker) snapshot() Progress {
	var elapsed time.Duration
	if p.started {
		elapsed = time.Since(p.startTime)
	}
	var eta time.Duration
	if p.current > 0 && p.current < p.total {
		perItem := elapsed / time.Duration(p.current)
		eta = perItem * time.Duration(p.total-p.current)
	}
	return Progress{Done: p.current, Total: p.total, Elapsed: elapsed, ETA: eta}
}

// emit must be called with lock held.
func (p *ProgressTracker) emit() {
	if p.report != nil {
		p.report(p.snapshot())
	}
}

// WriterProgress returns a ProgressFunc that rewrites one status line on w,
// ending it with a newline once the phase completes.
func WriterProgress(w io.Writer) ProgressFunc {
	return func(p Progress) {
		rate := 0.0
		if s := p.Elapsed.Seconds(); s > 0 {
			rate = float64(p.Done) / s
		}
		fmt.Fprintf(w, "\rProgress: %d/%d (%.1f%%) - %.1f files/s - ETA %s",
			p.Done, p.Total, p.Percent(), rate, p.ETA.Round(time.Second))
		if p.Done >= p.Total {
			fmt.Fprintln(w)
		}
	}
}
