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

import "errors"

var (
	// ErrNotFound indicates that the requested entry was not found.
	ErrNotFound = errors.New("entry not found")

	// ErrCorruptEntry indicates stored bytes could not be fully decoded.
	ErrCorruptEntry = errors.New("corrupt cache entry")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidKey indicates a key that cannot be stored safely.
	ErrInvalidKey = errors.New("invalid cache key")

	// ErrInvalidTier indicates an unknown cache tier.
	ErrInvalidTier = errors.New("invalid cache tier")

	// ErrSerializationFailed indicates a serialization failure.
	ErrSerializationFailed = errors.New("serialization failed")
)
