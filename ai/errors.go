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

package ai

import "errors"

var (
	// ErrInvalidMaxAttempts indicates maxAttempts must be greater than 0.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrMalformedResponse indicates the model output could not be decoded
	// into candidate records.
	ErrMalformedResponse = errors.New("malformed extraction response")

	// ErrEmptyResponse indicates the model returned no choices.
	ErrEmptyResponse = errors.New("empty model response")

	// ErrEmbeddingCount indicates the service returned a different number
	// of vectors than texts sent.
	ErrEmbeddingCount = errors.New("embedding count mismatch")

	// ErrUnknownProvider indicates Config.Provider names no implementation.
	ErrUnknownProvider = errors.New("unknown ai provider")

	// ErrCompletionRequired indicates NewBatchExtractor was given no completion function.
	ErrCompletionRequired = errors.New("completion function is required")
)
