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

package core

import (
	"encoding/json"
	"time"
)

// Stage names a state of the per-request pipeline.
type Stage string

const (
	StageStart      Stage = "start"
	StageIngested   Stage = "ingested"
	StageFiltered   Stage = "filtered"
	StageDispatched Stage = "dispatched"
	StageDone       Stage = "done"
)

// Seconds is a duration that serializes as fractional seconds.
type Seconds time.Duration

// Duration converts back to a time.Duration.
func (s Seconds) Duration() time.Duration {
	return time.Duration(s)
}

func (s Seconds) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(s).Seconds())
}

func (s *Seconds) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*s = Seconds(f * float64(time.Second))
	return nil
}

// Telemetry describes what one request did and what it skipped.
// It is built up by each phase and returned with the result; it is never
// persisted.
type Telemetry struct {
	RequestID string `json:"request_id"`

	// Stage is the last state reached before the request finished.
	Stage Stage `json:"stage"`

	IndexCacheHit  bool   `json:"index_cache_hit"`
	ResultCacheHit bool   `json:"result_cache_hit"`
	CacheKey       string `json:"cache_key,omitempty"`

	TotalDocuments    int `json:"total_documents"`
	FilteredDocuments int `json:"filtered_documents"`

	// SkippedDocuments lists files excluded during ingestion.
	SkippedDocuments []string `json:"skipped_documents,omitempty"`

	// FilterFallback is the reason the unfiltered corpus was used, if it was.
	FilterFallback string `json:"filter_fallback,omitempty"`

	BatchesTotal     int `json:"batches_total"`
	BatchesSucceeded int `json:"batches_succeeded"`

	// FailedBatches holds the zero-based positions of failed batches.
	FailedBatches []int `json:"failed_batches,omitempty"`

	// CacheWriteFailed is set when the result could not be cached.
	CacheWriteFailed bool `json:"cache_write_failed,omitempty"`

	DispatchElapsed Seconds `json:"dispatch_elapsed"`
	Elapsed         Seconds `json:"elapsed_time"`
}

// Degraded reports whether any part of the request was skipped or failed.
func (t Telemetry) Degraded() bool {
	return len(t.SkippedDocuments) > 0 ||
		t.FilterFallback != "" ||
		len(t.FailedBatches) > 0 ||
		t.CacheWriteFailed
}
