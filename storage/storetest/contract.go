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

// Package storetest holds the behavioral contract every storage.Store
// backend must satisfy. Backend tests call Run with a factory.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/skillmatch/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory opens a fresh backing and returns one store per tier over it.
// Implementations register cleanup with t.Cleanup.
type Factory func(t *testing.T) (index storage.Store, result storage.Store)

// Run exercises the storage.Store contract against stores built by factory.
func Run(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("get unknown key", func(t *testing.T) {
		_, store := factory(t)
		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		indexes, store := factory(t)
		assert.Equal(t, storage.TierResult, store.Tier())
		assert.Equal(t, storage.TierIndex, indexes.Tier())

		payload := []byte(`[{"source_file":"a.txt","name":"Ada"}]`)
		before := time.Now().Add(-time.Second)
		require.NoError(t, store.Put(ctx, "k1", payload))

		entry, err := store.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, "k1", entry.Key)
		assert.Equal(t, payload, entry.Payload)
		assert.True(t, entry.CreatedAt.After(before), "created_at %v", entry.CreatedAt)
	})

	t.Run("binary payload", func(t *testing.T) {
		store, _ := factory(t)
		blob := []byte{0x00, 0x01, 0xfe, 0xff}
		require.NoError(t, store.Put(ctx, "blob", blob))

		entry, err := store.Get(ctx, "blob")
		require.NoError(t, err)
		assert.Equal(t, blob, entry.Payload)
	})

	t.Run("overwrite last write wins", func(t *testing.T) {
		_, store := factory(t)
		require.NoError(t, store.Put(ctx, "k", []byte("first")))
		require.NoError(t, store.Put(ctx, "k", []byte("second")))

		entry, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), entry.Payload)
	})

	t.Run("delete", func(t *testing.T) {
		_, store := factory(t)
		require.NoError(t, store.Put(ctx, "k", []byte("v")))
		require.NoError(t, store.Delete(ctx, "k"))

		_, err := store.Get(ctx, "k")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		// Deleting again is not an error
		assert.NoError(t, store.Delete(ctx, "k"))
	})

	t.Run("clear leaves other tier intact", func(t *testing.T) {
		indexes, results := factory(t)

		require.NoError(t, results.Put(ctx, "shared", []byte("result")))
		require.NoError(t, results.Put(ctx, "other", []byte("result")))
		require.NoError(t, indexes.Put(ctx, "shared", []byte("index")))

		require.NoError(t, results.Clear(ctx))

		_, err := results.Get(ctx, "shared")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = results.Get(ctx, "other")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		entry, err := indexes.Get(ctx, "shared")
		require.NoError(t, err)
		assert.Equal(t, []byte("index"), entry.Payload)
	})

	t.Run("invalid key", func(t *testing.T) {
		_, store := factory(t)
		assert.ErrorIs(t, store.Put(ctx, "../escape", []byte("v")), storage.ErrInvalidKey)
		_, err := store.Get(ctx, "a/b")
		assert.ErrorIs(t, err, storage.ErrInvalidKey)
	})

	t.Run("concurrent writers to different keys", func(t *testing.T) {
		_, store := factory(t)
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				key := fmt.Sprintf("key-%d", i)
				assert.NoError(t, store.Put(ctx, key, []byte(key)))
			}(i)
		}
		wg.Wait()

		for i := 0; i < 16; i++ {
			key := fmt.Sprintf("key-%d", i)
			entry, err := store.Get(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, []byte(key), entry.Payload)
		}
	})
}
