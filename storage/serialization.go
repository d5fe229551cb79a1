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
	"encoding/json"
	"fmt"
	"time"

	"github.com/poiesic/skillmatch/core"
)

const maxKeyLength = 200

// envelope is the persisted form of an Entry.
type envelope struct {
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
	Checksum  string    `json:"checksum"`
	Payload   []byte    `json:"payload"`
}

// MarshalEntry serializes an Entry to bytes.
func MarshalEntry(entry *Entry) ([]byte, error) {
	data, err := json.Marshal(envelope{
		Key:       entry.Key,
		CreatedAt: entry.CreatedAt.UTC(),
		Checksum:  core.HashContent(string(entry.Payload)),
		Payload:   entry.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalEntry deserializes an Entry and verifies its checksum.
// If key is non-empty the stored key must match it.
func UnmarshalEntry(data []byte, key string) (*Entry, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptEntry, err)
	}
	if key != "" && env.Key != key {
		return nil, fmt.Errorf("%w: stored key %q does not match %q", ErrCorruptEntry, env.Key, key)
	}
	if env.Checksum != core.HashContent(string(env.Payload)) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptEntry)
	}
	return &Entry{
		Key:       env.Key,
		Payload:   env.Payload,
		CreatedAt: env.CreatedAt,
	}, nil
}

// ValidateKey checks that key is safe to use as a file name or key suffix.
// Keys may contain ASCII letters, digits, '.', '_' and '-', and may not
// start with '.'.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if len(key) > maxKeyLength {
		return fmt.Errorf("%w: key longer than %d bytes", ErrInvalidKey, maxKeyLength)
	}
	if key[0] == '.' {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '_', r == '-':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}
