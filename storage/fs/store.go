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

// Package fs stores cache entries as one file per key under
// <root>/<tier>/<key>.json. Writes go to a temp file in the same directory
// and are renamed into place, so readers see either the old or the new
// entry and never a partial one.
package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/poiesic/skillmatch/storage"
)

const entryExt = ".json"

// Store implements storage.Store on the local filesystem.
type Store struct {
	dir    string
	tier   storage.Tier
	closed atomic.Bool
	logger *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a store for tier rooted at root.
// The tier directory is created if it does not exist.
func NewStore(root string, tier storage.Tier) (storage.Store, error) {
	return newStore(root, tier)
}

func newStore(root string, tier storage.Tier) (*Store, error) {
	if err := tier.Validate(); err != nil {
		return nil, err
	}
	if root == "" {
		return nil, errors.New("fs store: root directory is required")
	}

	dir := filepath.Join(root, string(tier))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("fs store: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("fs store: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fs store: %s is not a directory", dir)
	}

	return &Store{
		dir:    dir,
		tier:   tier,
		logger: slog.Default().With("component", "fs-store", "tier", string(tier)),
	}, nil
}

// Tier returns the tier this store serves.
func (s *Store) Tier() storage.Tier {
	return s.tier
}

// Get reads and decodes the entry file for key.
func (s *Store) Get(ctx context.Context, key string) (*storage.Entry, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("fs store: read %s: %w", key, err)
	}
	return storage.UnmarshalEntry(data, key)
}

// Put writes the entry for key through a temp file and rename.
func (s *Store) Put(ctx context.Context, key string, payload []byte) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := s.check(ctx); err != nil {
		return err
	}

	data, err := storage.MarshalEntry(&storage.Entry{Key: key, Payload: payload, CreatedAt: time.Now()})
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("fs store: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		if rmErr := os.Remove(tmpName); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			s.logger.Warn("failed to remove temp file", "path", tmpName, "err", rmErr)
		}
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("fs store: write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("fs store: sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("fs store: close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("fs store: rename %s: %w", key, err)
	}

	s.logger.Debug("stored entry", "key", key, "bytes", len(data))
	return nil
}

// Delete removes the entry file for key.
func (s *Store) Delete(ctx context.Context, key string) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := s.check(ctx); err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("fs store: delete %s: %w", key, err)
	}
	return nil
}

// Clear removes every entry file in the tier directory.
// Stray temp files from interrupted writes are removed too.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("fs store: %w", err)
	}

	removed := 0
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		if !strings.HasSuffix(name, entryExt) && !strings.HasSuffix(name, ".tmp") {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("fs store: clear: %w", err)
		}
		removed++
	}

	s.logger.Info("cleared tier", "removed", removed)
	return nil
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *Store) pathFor(key string) (string, error) {
	if err := storage.ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, key+entryExt), nil
}

func (s *Store) check(ctx context.Context) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}
	return ctx.Err()
}
