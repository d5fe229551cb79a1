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

// Package index splits documents into chunks and holds a similarity index
// over their vectors.
//
// The index is a chromem-go collection with one entry per chunk. Each entry
// carries the chunk text and its (document_id, chunk_index) tag, so a
// serialized index is a self-contained blob that the index cache tier can
// persist and reload without recomputing embeddings.
package index
