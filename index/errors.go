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

package index

import "errors"

var (
	// ErrInvalidChunking indicates bad chunk size or overlap settings.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrNoChunks is returned when building an index from nothing.
	ErrNoChunks = errors.New("no chunks to index")

	// ErrVectorMismatch indicates chunks and vectors do not line up.
	ErrVectorMismatch = errors.New("chunk and vector counts differ")

	// ErrDimensionMismatch indicates vectors of differing length.
	ErrDimensionMismatch = errors.New("vectors have differing dimensions")

	// ErrCorruptIndex indicates a serialized index could not be loaded.
	ErrCorruptIndex = errors.New("corrupt serialized index")
)
