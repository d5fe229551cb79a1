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

// Package fingerprint derives content-addressed cache keys from a corpus
// and a query.
//
// A fingerprint is the hex BLAKE2b-256 digest of a canonical, length-prefixed
// serialization. Documents enter sorted by ID and query terms enter
// normalized and sorted, so read order and term order never change the key.
//
// Two scopes exist:
//
//   - ScopeIndex covers (id, content_hash) pairs only. It keys the similarity
//     index cache and is independent of the query.
//   - ScopeResult additionally covers the normalized query terms and the
//     filter capability flag. It keys the result cache.
package fingerprint

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/go-crypt/x/blake2b"
	"github.com/poiesic/skillmatch/core"
)

// Scope selects which inputs enter the digest.
type Scope int

const (
	// ScopeIndex digests corpus content only.
	ScopeIndex Scope = iota + 1
	// ScopeResult digests corpus content, query terms and the filter flag.
	ScopeResult
)

func (s Scope) String() string {
	switch s {
	case ScopeIndex:
		return "index"
	case ScopeResult:
		return "result"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

const version = "skillmatch/fingerprint/v1"

// Compute returns the fingerprint of corpus and query for the given scope.
// query and filterEnabled are ignored for ScopeIndex.
func Compute(corpus core.Corpus, query core.Query, scope Scope, filterEnabled bool) string {
	h, _ := blake2b.New(32, nil)

	writeField(h, version)
	writeField(h, scope.String())

	ids := corpus.IDs()
	writeCount(h, len(ids))
	for _, id := range ids {
		writeField(h, id)
		writeField(h, corpus[id].ContentHash)
	}

	if scope == ScopeResult {
		terms := query.Normalized()
		writeCount(h, len(terms))
		for _, term := range terms {
			writeField(h, term)
		}
		if filterEnabled {
			writeField(h, "vector_enabled")
		} else {
			writeField(h, "vector_disabled")
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}

// Index returns the ScopeIndex fingerprint of corpus.
func Index(corpus core.Corpus) string {
	return Compute(corpus, core.Query{}, ScopeIndex, false)
}

// Result returns the ScopeResult fingerprint of corpus, query and filter flag.
func Result(corpus core.Corpus, query core.Query, filterEnabled bool) string {
	return Compute(corpus, query, ScopeResult, filterEnabled)
}

// writeField writes a length-prefixed string so adjacent fields cannot alias.
func writeField(h hash.Hash, s string) {
	writeCount(h, len(s))
	h.Write([]byte(s))
}

func writeCount(h hash.Hash, n int) {
	var buf [binary.MaxVarintLen64]byte
	h.Write(buf[:binary.PutUvarint(buf[:], uint64(n))])
}
