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

package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/skillmatch/core"
)

// ParseRecords decodes a model response into candidate records for batch.
//
// Text that does not decode as is goes through repairResponse first. The
// payload must be a JSON array of objects, a single record object, or an
// object whose first array-valued member, in document order, holds the
// records. Elements that are not
// objects, lack a source_file, or name a document outside batch are dropped.
// When minScore > 0, records scoring below it, or without a score, are
// dropped too.
//
// ErrMalformedResponse is returned only when the text cannot be decoded at all.
func ParseRecords(response string, batch core.Corpus, minScore float64, logger *slog.Logger) ([]core.CandidateRecord, error) {
	if logger == nil {
		logger = slog.Default()
	}

	text := strings.TrimSpace(response)
	var top json.RawMessage
	if err := json.Unmarshal([]byte(text), &top); err != nil {
		repaired := repairResponse(text)
		if rerr := json.Unmarshal([]byte(repaired), &top); rerr != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		logger.Debug("repaired model response", "original_err", err)
	}

	elements, err := recordElements(top)
	if err != nil {
		return nil, err
	}

	records := make([]core.CandidateRecord, 0, len(elements))
	for i, raw := range elements {
		var rec core.CandidateRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			logger.Warn("dropping record without source", "position", i, "err", err)
			continue
		}
		if _, ok := batch[rec.SourceID]; !ok {
			logger.Warn("dropping record for unknown document", "source_file", rec.SourceID)
			continue
		}
		if minScore > 0 {
			score, ok := rec.MatchScore()
			if !ok || score < minScore {
				logger.Debug("dropping record below minimum score", "source_file", rec.SourceID, "min", minScore)
				continue
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func recordElements(top json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(top)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedResponse)
	}

	switch trimmed[0] {
	case '[':
		var elements []json.RawMessage
		if err := json.Unmarshal(trimmed, &elements); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		return elements, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		if _, ok := obj[core.SourceField]; ok {
			return []json.RawMessage{trimmed}, nil
		}
		arr, err := firstArrayValue(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		if arr == nil {
			// An object with no records in it means no matches
			return nil, nil
		}
		return recordElements(arr)
	case 'n':
		// null
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: expected a JSON array or object", ErrMalformedResponse)
	}
}

// firstArrayValue returns the first member of obj whose value is an array,
// walking members in the order they appear.
func firstArrayValue(obj []byte) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(obj))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		if v = bytes.TrimSpace(v); len(v) > 0 && v[0] == '[' {
			return v, nil
		}
	}
	return nil, nil
}
