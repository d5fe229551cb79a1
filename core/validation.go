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
	"fmt"
	"strings"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Content must contain non-whitespace text
//   - ContentHash must match Content
func ValidateDocument(doc Document) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyDocumentID)
	}

	if strings.TrimSpace(doc.Content) == "" {
		return fmt.Errorf("%w: %s: %w", ErrInvalidDocument, doc.ID, ErrEmptyContent)
	}

	if doc.ContentHash != HashContent(doc.Content) {
		return fmt.Errorf("%w: %s: %w", ErrInvalidDocument, doc.ID, ErrContentHashMismatch)
	}

	return nil
}

// ValidateQuery rejects queries with no terms.
func ValidateQuery(q Query) error {
	if q.IsEmpty() {
		return ErrEmptyQuery
	}
	return nil
}
