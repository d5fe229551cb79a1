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
	"errors"

	"github.com/poiesic/skillmatch/storage"
)

// ErrBackendRequired is returned when a store is created without a backend.
var ErrBackendRequired = errors.New("badger backend required")

// NewMemoryStores creates in-memory index and result stores for testing.
// Returns indexStore, resultStore, backend, and error.
// Caller must close the backend when done.
func NewMemoryStores() (storage.Store, storage.Store, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, nil, err
	}

	indexStore, err := NewStore(backend, storage.TierIndex)
	if err != nil {
		backend.Close()
		return nil, nil, nil, err
	}

	resultStore, err := NewStore(backend, storage.TierResult)
	if err != nil {
		backend.Close()
		return nil, nil, nil, err
	}

	return indexStore, resultStore, backend, nil
}
