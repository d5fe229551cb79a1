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
	"strconv"
	"strings"
)

const (
	// SourceField is the JSON key binding a record to its document.
	SourceField = "source_file"

	// MatchScoreField is the JSON key carrying the 0-100 match score.
	MatchScoreField = "match_score"
)

// CandidateRecord is structured extraction output for one source document.
// Everything except the source ID is opaque payload owned by the extraction
// provider. Records serialize as one flat JSON object.
type CandidateRecord struct {
	SourceID string
	Fields   map[string]any
}

// MarshalJSON flattens the record into a single object with SourceField set.
func (r CandidateRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		out[k] = v
	}
	out[SourceField] = r.SourceID
	return json.Marshal(out)
}

// UnmarshalJSON reads a flat object and splits off SourceField.
func (r *CandidateRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	source, _ := fields[SourceField].(string)
	source = strings.TrimSpace(source)
	if source == "" {
		return ErrMissingSourceID
	}
	delete(fields, SourceField)
	r.SourceID = source
	r.Fields = fields
	return nil
}

// MatchScore returns the numeric match score if the provider supplied one.
// Numeric strings are accepted.
func (r CandidateRecord) MatchScore() (float64, bool) {
	switch v := r.Fields[MatchScoreField].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
