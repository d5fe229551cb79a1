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

package core

import (
	"errors"
	"fmt"
)

// Request input errors
var (
	// ErrDirectoryNotFound indicates the document directory does not exist.
	ErrDirectoryNotFound = errors.New("document directory not found")

	// ErrNotADirectory indicates the document path is not a directory.
	ErrNotADirectory = errors.New("document path is not a directory")

	// ErrEmptyQuery indicates the query contains no usable skill terms.
	ErrEmptyQuery = errors.New("query cannot be empty")
)

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyContent indicates the document text is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyDocumentID indicates the document ID is empty.
	ErrEmptyDocumentID = errors.New("document id cannot be empty")

	// ErrContentHashMismatch indicates ContentHash does not match Content.
	ErrContentHashMismatch = errors.New("content hash does not match content")

	// ErrDuplicateDocument indicates two documents in a corpus share an ID.
	ErrDuplicateDocument = errors.New("duplicate document id")

	// ErrMissingSourceID indicates a candidate record has no source document.
	ErrMissingSourceID = errors.New("candidate record missing source_file")
)

// DuplicateDocumentError reports the ID that collided.
type DuplicateDocumentError struct {
	ID string
}

func (e *DuplicateDocumentError) Error() string {
	return fmt.Sprintf("%s: %q", ErrDuplicateDocument, e.ID)
}

// Is lets errors.Is match ErrDuplicateDocument.
func (e *DuplicateDocumentError) Is(target error) bool {
	return target == ErrDuplicateDocument
}
