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

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/skillmatch/core"
	"github.com/poiesic/skillmatch/storage"
)

// ErrStoreRequired is returned when a cache is created without a store.
var ErrStoreRequired = errors.New("cache store required")

// ErrCodecRequired is returned when a cache is created without a codec.
var ErrCodecRequired = errors.New("cache codec required")

// Codec converts cached values to and from payload bytes.
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// JSONCodec encodes values with encoding/json.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Encode(v T) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec[T]) Decode(data []byte) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}

// Cache is a typed view over one storage tier.
// Reads never fail: anything that is not a fully decoded hit is a miss.
type Cache[T any] struct {
	store  storage.Store
	codec  Codec[T]
	logger *slog.Logger
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets a custom logger.
// Default is slog.Default() tagged with the cache tier.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates a Cache over store using codec.
func New[T any](store storage.Store, codec Codec[T], opts ...Option) (*Cache[T], error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if codec == nil {
		return nil, ErrCodecRequired
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	return &Cache[T]{
		store:  store,
		codec:  codec,
		logger: o.logger.With("component", "cache", "tier", string(store.Tier())),
	}, nil
}

// ResultCache caches merged extraction records keyed by result fingerprint.
type ResultCache = Cache[[]core.CandidateRecord]

// NewResultCache creates a JSON encoded record cache over store.
func NewResultCache(store storage.Store, opts ...Option) (*ResultCache, error) {
	return New[[]core.CandidateRecord](store, JSONCodec[[]core.CandidateRecord]{}, opts...)
}

// Tier returns the tier of the underlying store.
func (c *Cache[T]) Tier() storage.Tier {
	return c.store.Tier()
}

// Get returns the cached value for key and whether it was a hit.
// Missing, undecodable, and unreadable entries are all misses; the latter
// two are logged.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T

	entry, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logger.Warn("cache read failed, treating as miss", "key", key, "err", err)
		}
		return zero, false
	}

	v, err := c.codec.Decode(entry.Payload)
	if err != nil {
		c.logger.Warn("cache entry could not be decoded, treating as miss", "key", key, "err", err)
		return zero, false
	}

	c.logger.Debug("cache hit", "key", key, "created_at", entry.CreatedAt)
	return v, true
}

// Put encodes v and stores it under key.
// The error is returned for reporting; callers must not abort on it.
func (c *Cache[T]) Put(ctx context.Context, key string, v T) error {
	data, err := c.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := c.store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	c.logger.Debug("cache write", "key", key, "bytes", len(data))
	return nil
}

// Delete removes the entry for key.
func (c *Cache[T]) Delete(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}

// Clear removes every entry of the tier.
func (c *Cache[T]) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}
