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
	"bytes"
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/poiesic/skillmatch/cache"
	"github.com/poiesic/skillmatch/storage"
)

const (
	collectionName = "chunks"

	metaDocumentID = "document_id"
	metaChunkIndex = "chunk_index"
)

// Hit is one retrieved chunk and its cosine similarity to the query.
type Hit struct {
	Chunk Chunk
	Score float32
}

// Index is an exact cosine-similarity index over chunk vectors.
// Chunk text and (document_id, chunk_index) travel with each vector, so a
// serialized index carries its own chunk metadata.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// Build indexes chunks with their vectors. vectors[i] belongs to chunks[i].
func Build(ctx context.Context, chunks []Chunk, vectors [][]float32) (*Index, error) {
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("%w: %d chunks, %d vectors", ErrVectorMismatch, len(chunks), len(vectors))
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has length %d, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, err
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:      c.ID(),
			Content: c.Text,
			Metadata: map[string]string{
				metaDocumentID: c.DocumentID,
				metaChunkIndex: strconv.Itoa(c.Index),
			},
			Embedding: vectors[i],
		}
	}
	if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("add chunks to index: %w", err)
	}

	return &Index{db: db, collection: collection}, nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	return ix.collection.Count()
}

// Search returns up to k chunks ranked by similarity to query, best first.
// k <= 0 or k > Len() searches every chunk.
func (ix *Index) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	n := ix.Len()
	if n == 0 {
		return nil, nil
	}
	if k <= 0 || k > n {
		k = n
	}

	results, err := ix.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: query,
		NResults:       k,
	})
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		chunkIndex, err := strconv.Atoi(r.Metadata[metaChunkIndex])
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %s has bad index %q", ErrCorruptIndex, r.ID, r.Metadata[metaChunkIndex])
		}
		hits = append(hits, Hit{
			Chunk: Chunk{
				DocumentID: r.Metadata[metaDocumentID],
				Index:      chunkIndex,
				Text:       r.Content,
			},
			Score: r.Similarity,
		})
	}
	return hits, nil
}

// MarshalBinary serializes the index using chromem's gzip'd gob export.
func (ix *Index) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := ix.db.ExportToWriter(&buf, true, "", collectionName); err != nil {
		return nil, fmt.Errorf("export index: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal loads an index produced by MarshalBinary.
func Unmarshal(data []byte) (*Index, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrCorruptIndex)
	}

	db := chromem.NewDB()
	if err := db.ImportFromReader(bytes.NewReader(data), ""); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptIndex, err)
	}
	collection := db.GetCollection(collectionName, nil)
	if collection == nil {
		return nil, fmt.Errorf("%w: collection %q missing", ErrCorruptIndex, collectionName)
	}
	return &Index{db: db, collection: collection}, nil
}

// Codec stores an *Index in a cache tier.
type Codec struct{}

var _ cache.Codec[*Index] = Codec{}

func (Codec) Encode(ix *Index) ([]byte, error) {
	return ix.MarshalBinary()
}

func (Codec) Decode(data []byte) (*Index, error) {
	return Unmarshal(data)
}

// Cache is the index cache tier.
type Cache = cache.Cache[*Index]

// NewCache creates an index cache over store.
func NewCache(store storage.Store, opts ...cache.Option) (*Cache, error) {
	return cache.New[*Index](store, Codec{}, opts...)
}
