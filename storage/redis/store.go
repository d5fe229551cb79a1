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

// Package redis stores cache entries in Redis under
// <prefix>:<tier>:<key>. Entries never expire.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/skillmatch/storage"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultPrefix namespaces keys when no prefix is given.
	DefaultPrefix = "skillmatch"

	scanBatch = 100
)

// ErrClientRequired is returned when a store is created without a client.
var ErrClientRequired = errors.New("redis client required")

// Store implements storage.Store on a Redis server.
type Store struct {
	client *redis.Client
	prefix string
	tier   storage.Tier
	logger *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a store for tier using client.
// Closing the store does not close the client.
func NewStore(client *redis.Client, prefix string, tier storage.Tier) (storage.Store, error) {
	if client == nil {
		return nil, ErrClientRequired
	}
	if err := tier.Validate(); err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{
		client: client,
		prefix: prefix + ":" + string(tier) + ":",
		tier:   tier,
		logger: slog.Default().With("component", "redis-store", "tier", string(tier)),
	}, nil
}

// NewClient creates a Redis client for addr.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Tier returns the tier this store serves.
func (s *Store) Tier() storage.Tier {
	return s.tier
}

// Get retrieves the entry stored under key.
func (s *Store) Get(ctx context.Context, key string) (*storage.Entry, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return storage.UnmarshalEntry(data, key)
}

// Put stores payload under key with no expiry.
func (s *Store) Put(ctx context.Context, key string, payload []byte) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}

	data, err := storage.MarshalEntry(&storage.Entry{Key: key, Payload: payload, CreatedAt: time.Now()})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.prefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes the entry stored under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Clear scans for keys under the tier prefix and deletes them in batches.
func (s *Store) Clear(ctx context.Context) error {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
			removed += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	s.logger.Info("cleared tier", "removed", removed)
	return nil
}

// Close is a no-op; the client is owned by the caller.
func (s *Store) Close() error {
	return nil
}
