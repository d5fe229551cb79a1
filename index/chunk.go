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

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/poiesic/skillmatch/core"
)

const (
	// DefaultChunkSize is the number of words per chunk.
	DefaultChunkSize = 512
	// DefaultChunkOverlap is the number of words shared by adjacent chunks.
	DefaultChunkOverlap = 50
)

// Chunk is a bounded slice of a document's text.
type Chunk struct {
	DocumentID string
	Index      int
	Text       string
}

// ID returns the chunk identifier <document_id>#<chunk_index>.
func (c Chunk) ID() string {
	return c.DocumentID + "#" + strconv.Itoa(c.Index)
}

// Chunker splits documents into overlapping word windows.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker with size words per chunk and overlap words
// shared between neighbours. overlap must be smaller than size.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidChunking, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d", ErrInvalidChunking, size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split returns the chunks of doc in order. A document with fewer words than
// one chunk yields a single chunk, and so does a document without words.
func (c *Chunker) Split(doc core.Document) []Chunk {
	words := strings.Fields(doc.Content)
	if len(words) <= c.size {
		text := strings.Join(words, " ")
		if text == "" {
			text = doc.Content
		}
		return []Chunk{{DocumentID: doc.ID, Index: 0, Text: text}}
	}

	step := c.size - c.overlap
	chunks := make([]Chunk, 0, len(words)/step+1)
	for start := 0; start < len(words); start += step {
		end := min(start+c.size, len(words))
		chunks = append(chunks, Chunk{
			DocumentID: doc.ID,
			Index:      len(chunks),
			Text:       strings.Join(words[start:end], " "),
		})
		if end == len(words) {
			break
		}
	}
	return chunks
}

// SplitCorpus chunks every document of corpus, ordered by document ID.
func (c *Chunker) SplitCorpus(corpus core.Corpus) []Chunk {
	var chunks []Chunk
	for _, doc := range corpus.Documents() {
		chunks = append(chunks, c.Split(doc)...)
	}
	return chunks
}
