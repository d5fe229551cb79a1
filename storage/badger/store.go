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

package badger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/skillmatch/storage"
)

// Store implements storage.Store for one tier of a shared Backend.
type Store struct {
	backend *Backend
	tier    storage.Tier
	logger  *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a store for tier on backend.
// Closing the store does not close the backend.
func NewStore(backend *Backend, tier storage.Tier) (storage.Store, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	if err := tier.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		backend: backend,
		tier:    tier,
		logger:  slog.Default().With("component", "badger-store", "tier", string(tier)),
	}, nil
}

// Tier returns the tier this store serves.
func (s *Store) Tier() storage.Tier {
	return s.tier
}

// Get retrieves the entry stored under key.
func (s *Store) Get(ctx context.Context, key string) (*storage.Entry, error) {
	if err := s.check(ctx, key); err != nil {
		return nil, err
	}

	var data []byte
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeEntryKey(s.tier, key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	}, false)
	if err != nil {
		return nil, err
	}

	return storage.UnmarshalEntry(data, key)
}

// Put stores payload under key.
func (s *Store) Put(ctx context.Context, key string, payload []byte) error {
	if err := s.check(ctx, key); err != nil {
		return err
	}

	data, err := storage.MarshalEntry(&storage.Entry{Key: key, Payload: payload, CreatedAt: time.Now()})
	if err != nil {
		return err
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeEntryKey(s.tier, key), data); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Delete removes the entry stored under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.check(ctx, key); err != nil {
		return err
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeEntryKey(s.tier, key)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Clear drops every key under the tier prefix.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if err := s.backend.DropPrefix(makeTierPrefix(s.tier)); err != nil {
		return err
	}
	s.logger.Info("cleared tier")
	return nil
}

// Close is a no-op; the backend is owned by the caller.
func (s *Store) Close() error {
	return nil
}

func (s *Store) check(ctx context.Context, key string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return ctx.Err()
}
