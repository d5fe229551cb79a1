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

// Package storage provides the cache persistence abstraction for skillmatch.
//
// A Store is a key-value store bound to one cache tier. The index tier holds
// serialized similarity indexes and the result tier holds extraction results.
// Each tier gets its own Store, so the two can live on different backings.
//
// # Backends
//
//   - storage/fs: one file per key, written via temp file and rename
//   - storage/badger: embedded BadgerDB, one key prefix per tier
//   - storage/redis: Redis server, one key prefix per tier
//   - storage/sqlite: single SQLite file, one table keyed by tier and key
//
// # Constructor Return Type Pattern
//
// Public backend constructors return the storage.Store interface:
//
//	store, err := fs.NewStore("/var/cache/skillmatch", storage.TierResult)
//
// # Entries
//
// Every backend persists an Entry through MarshalEntry, which wraps the
// payload in an envelope carrying the key, creation time and a content
// checksum. UnmarshalEntry rejects envelopes whose checksum or key does not
// match with ErrCorruptEntry, so a Get never returns partially decoded data.
//
// # Thread Safety
//
// All Store implementations must be safe for concurrent use. Concurrent Puts
// to the same key race and the last write wins.
//
// # Context Support
//
// All Store methods accept context.Context for cancellation and timeout
// support.
package storage
