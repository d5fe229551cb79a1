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

package storage

import (
	"context"
	"fmt"
	"time"
)

// Tier names a cache tier.
type Tier string

const (
	// TierIndex holds serialized similarity indexes keyed by corpus.
	TierIndex Tier = "index"

	// TierResult holds extraction results keyed by corpus and query.
	TierResult Tier = "result"
)

// Tiers lists every cache tier.
var Tiers = []Tier{TierIndex, TierResult}

// Validate checks that t is a known tier.
func (t Tier) Validate() error {
	switch t {
	case TierIndex, TierResult:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTier, string(t))
	}
}

// Entry is one cached value.
type Entry struct {
	Key       string
	Payload   []byte
	CreatedAt time.Time
}

// Store persists cache entries for a single tier.
type Store interface {
	// Tier returns the tier this store serves.
	Tier() Tier

	// Get retrieves the entry stored under key.
	// Returns ErrNotFound if no entry exists and ErrCorruptEntry if the
	// stored bytes cannot be fully decoded.
	Get(ctx context.Context, key string) (*Entry, error)

	// Put stores payload under key, replacing any existing entry.
	// CreatedAt is set to the current time.
	Put(ctx context.Context, key string, payload []byte) error

	// Delete removes the entry stored under key.
	// Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry of this store's tier.
	Clear(ctx context.Context) error

	// Close releases resources owned by the store.
	// Shared backends passed into a constructor are not closed.
	Close() error
}
