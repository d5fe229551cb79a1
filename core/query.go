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
	"slices"
	"strings"
)

// queryPrefix introduces the skills when a query is embedded as one sentence.
const queryPrefix = "Required skills and experience: "

// Query is a deduplicated set of required skill terms.
// Display order follows first appearance; hashing uses Normalized.
type Query struct {
	terms []string
}

// ParseQuery splits a comma separated query string into a Query.
func ParseQuery(s string) Query {
	return NewQuery(strings.Split(s, ",")...)
}

// NewQuery builds a Query from individual terms.
// Terms are trimmed, blanks are dropped, and case-insensitive duplicates
// keep the spelling of their first occurrence.
func NewQuery(terms ...string) Query {
	seen := make(map[string]struct{}, len(terms))
	q := Query{terms: make([]string, 0, len(terms))}
	for _, term := range terms {
		term = strings.Join(strings.Fields(term), " ")
		if term == "" {
			continue
		}
		key := strings.ToLower(term)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		q.terms = append(q.terms, term)
	}
	return q
}

// Terms returns the display terms in first-appearance order.
func (q Query) Terms() []string {
	return slices.Clone(q.terms)
}

// Normalized returns the case-folded terms in ascending order.
func (q Query) Normalized() []string {
	out := make([]string, len(q.terms))
	for i, term := range q.terms {
		out[i] = strings.ToLower(term)
	}
	slices.Sort(out)
	return out
}

// IsEmpty reports whether the query has no terms.
func (q Query) IsEmpty() bool {
	return len(q.terms) == 0
}

// String joins the display terms with ", ".
func (q Query) String() string {
	return strings.Join(q.terms, ", ")
}

// EmbeddingText is the single descriptive sentence used to embed the query.
func (q Query) EmbeddingText() string {
	if q.IsEmpty() {
		return ""
	}
	return queryPrefix + q.String()
}
