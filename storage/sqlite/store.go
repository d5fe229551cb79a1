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

// Package sqlite stores cache entries in a single SQLite file.
// Both tiers share one table keyed by (tier, key).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/poiesic/skillmatch/storage"
)

// ErrDBRequired is returned when a store is created without a database.
var ErrDBRequired = errors.New("sqlite database required")

// DB is an open cache database.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path with WAL mode enabled
// and ensures the schema exists. Use ":memory:" for a private in-memory
// database.
func Open(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection serializes writers and keeps ":memory:" a single database
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// initSchema creates tables if they don't exist.
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS cache_entries (
	tier TEXT NOT NULL,
	key TEXT NOT NULL,
	data BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (tier, key)
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// Store implements storage.Store for one tier of a DB.
type Store struct {
	db     *DB
	tier   storage.Tier
	logger *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a store for tier on db.
// Closing the store does not close the database.
func NewStore(db *DB, tier storage.Tier) (storage.Store, error) {
	if db == nil {
		return nil, ErrDBRequired
	}
	if err := tier.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		db:     db,
		tier:   tier,
		logger: slog.Default().With("component", "sqlite-store", "tier", string(tier)),
	}, nil
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

	var data []byte
	err := s.db.db.QueryRowContext(ctx,
		`SELECT data FROM cache_entries WHERE tier = ? AND key = ?`,
		string(s.tier), key,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get %s: %w", key, err)
	}
	return storage.UnmarshalEntry(data, key)
}

// Put upserts the entry for key.
func (s *Store) Put(ctx context.Context, key string, payload []byte) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}

	now := time.Now()
	data, err := storage.MarshalEntry(&storage.Entry{Key: key, Payload: payload, CreatedAt: now})
	if err != nil {
		return err
	}

	_, err = s.db.db.ExecContext(ctx, `
INSERT INTO cache_entries (tier, key, data, created_at) VALUES (?, ?, ?, ?)
ON CONFLICT (tier, key) DO UPDATE SET data = excluded.data, created_at = excluded.created_at`,
		string(s.tier), key, data, now.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("sqlite put %s: %w", key, err)
	}
	return nil
}

// Delete removes the entry stored under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	_, err := s.db.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE tier = ? AND key = ?`,
		string(s.tier), key,
	)
	if err != nil {
		return fmt.Errorf("sqlite delete %s: %w", key, err)
	}
	return nil
}

// Clear removes every entry of the tier.
func (s *Store) Clear(ctx context.Context) error {
	res, err := s.db.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE tier = ?`, string(s.tier))
	if err != nil {
		return fmt.Errorf("sqlite clear: %w", err)
	}
	removed, _ := res.RowsAffected()
	s.logger.Info("cleared tier", "removed", removed)
	return nil
}

// Close is a no-op; the database is owned by the caller.
func (s *Store) Close() error {
	return nil
}
