package index

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/skillmatch/core"
	"github.com/poiesic/skillmatch/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = "w" + string(rune('a'+i%26))
	}
	return strings.Join(w, " ")
}

func TestNewChunker(t *testing.T) {
	_, err := NewChunker(0, 0)
	assert.ErrorIs(t, err, ErrInvalidChunking)

	_, err = NewChunker(10, 10)
	assert.ErrorIs(t, err, ErrInvalidChunking)

	_, err = NewChunker(10, -1)
	assert.ErrorIs(t, err, ErrInvalidChunking)

	c, err := NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestChunker_Split(t *testing.T) {
	c, err := NewChunker(10, 3)
	require.NoError(t, err)

	t.Run("short document is one chunk", func(t *testing.T) {
		chunks := c.Split(core.NewDocument("a.txt", "  Go   and\nSQL "))
		require.Len(t, chunks, 1)
		assert.Equal(t, "Go and SQL", chunks[0].Text)
		assert.Equal(t, "a.txt#0", chunks[0].ID())
	})

	t.Run("exactly one chunk", func(t *testing.T) {
		chunks := c.Split(core.NewDocument("a.txt", words(10)))
		assert.Len(t, chunks, 1)
	})

	t.Run("overlapping windows", func(t *testing.T) {
		// 20 words, size 10, step 7: [0,10) [7,17) [14,20)
		chunks := c.Split(core.NewDocument("b.txt", words(20)))
		require.Len(t, chunks, 3)
		for i, chunk := range chunks {
			assert.Equal(t, "b.txt", chunk.DocumentID)
			assert.Equal(t, i, chunk.Index)
		}
		assert.Len(t, strings.Fields(chunks[0].Text), 10)
		assert.Len(t, strings.Fields(chunks[1].Text), 10)
		assert.Len(t, strings.Fields(chunks[2].Text), 6)

		// Last three words of a chunk open the next one
		first := strings.Fields(chunks[0].Text)
		second := strings.Fields(chunks[1].Text)
		assert.Equal(t, first[7:], second[:3])
	})

	t.Run("corpus ordered by id", func(t *testing.T) {
		corpus, err := core.NewCorpus(
			core.NewDocument("z.txt", "last"),
			core.NewDocument("a.txt", words(20)),
		)
		require.NoError(t, err)
		chunks := c.SplitCorpus(corpus)
		require.Len(t, chunks, 4)
		assert.Equal(t, "a.txt", chunks[0].DocumentID)
		assert.Equal(t, "z.txt", chunks[3].DocumentID)
	})
}

func testChunks() ([]Chunk, [][]float32) {
	chunks := []Chunk{
		{DocumentID: "go.txt", Index: 0, Text: "go"},
		{DocumentID: "go.txt", Index: 1, Text: "go more"},
		{DocumentID: "java.txt", Index: 0, Text: "java"},
	}
	vectors := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	return chunks, vectors
}

func TestBuild_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := Build(ctx, nil, nil)
	assert.ErrorIs(t, err, ErrNoChunks)

	chunks, vectors := testChunks()
	_, err = Build(ctx, chunks, vectors[:2])
	assert.ErrorIs(t, err, ErrVectorMismatch)

	vectors[2] = []float32{1, 0}
	_, err = Build(ctx, chunks, vectors)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestIndex_Search(t *testing.T) {
	ctx := context.Background()
	chunks, vectors := testChunks()

	ix, err := Build(ctx, chunks, vectors)
	require.NoError(t, err)
	assert.Equal(t, 3, ix.Len())

	t.Run("all chunks when k unset", func(t *testing.T) {
		hits, err := ix.Search(ctx, []float32{1, 0, 0}, 0)
		require.NoError(t, err)
		require.Len(t, hits, 3)
		assert.Equal(t, "go.txt#0", hits[0].Chunk.ID())
		assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
		assert.Equal(t, "java.txt", hits[2].Chunk.DocumentID)
		assert.InDelta(t, 0.0, hits[2].Score, 1e-5)
	})

	t.Run("top k", func(t *testing.T) {
		hits, err := ix.Search(ctx, []float32{0, 1, 0}, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "java.txt", hits[0].Chunk.DocumentID)
		assert.Equal(t, "java", hits[0].Chunk.Text)
	})

	t.Run("k larger than index", func(t *testing.T) {
		hits, err := ix.Search(ctx, []float32{0, 1, 0}, 50)
		require.NoError(t, err)
		assert.Len(t, hits, 3)
	})
}

func TestIndex_MarshalRoundTrip(t *testing.T) {
	ctx := context.Background()
	chunks, vectors := testChunks()

	ix, err := Build(ctx, chunks, vectors)
	require.NoError(t, err)

	data, err := ix.MarshalBinary()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	loaded, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, ix.Len(), loaded.Len())

	want, err := ix.Search(ctx, []float32{1, 0, 0}, 0)
	require.NoError(t, err)
	got, err := loaded.Search(ctx, []float32{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestIndex_MarshalInMemory(t *testing.T) {
	// No temp directory is available
	t.Setenv("TMPDIR", filepath.Join(t.TempDir(), "missing"))

	ctx := context.Background()
	chunks, vectors := testChunks()
	ix, err := Build(ctx, chunks, vectors)
	require.NoError(t, err)

	data, err := ix.MarshalBinary()
	require.NoError(t, err)
	require.Greater(t, len(data), 2)
	assert.Equal(t, []byte{0x1f, 0x8b}, data[:2], "payload is gzip compressed")

	loaded, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Len())
}

func TestUnmarshal_Corrupt(t *testing.T) {
	_, err := Unmarshal(nil)
	assert.ErrorIs(t, err, ErrCorruptIndex)

	_, err = Unmarshal([]byte("definitely not an index"))
	assert.Error(t, err)
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	indexStore, _, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	c, err := NewCache(indexStore)
	require.NoError(t, err)

	chunks, vectors := testChunks()
	ix, err := Build(ctx, chunks, vectors)
	require.NoError(t, err)

	require.NoError(t, c.Put(ctx, "fp", ix))
	loaded, hit := c.Get(ctx, "fp")
	require.True(t, hit)
	assert.Equal(t, 3, loaded.Len())

	require.NoError(t, indexStore.Put(ctx, "broken", []byte("garbage")))
	_, hit = c.Get(ctx, "broken")
	assert.False(t, hit)
}
