package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/skillmatch/storage"
	"github.com/poiesic/skillmatch/storage/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openPair(t *testing.T) (storage.Store, storage.Store) {
	t.Helper()
	root := t.TempDir()
	index, err := NewStore(root, storage.TierIndex)
	require.NoError(t, err)
	result, err := NewStore(root, storage.TierResult)
	require.NoError(t, err)
	t.Cleanup(func() {
		index.Close()
		result.Close()
	})
	return index, result
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, openPair)
}

func TestNewStore(t *testing.T) {
	t.Run("creates tier directory", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "nested", "cache")
		_, err := NewStore(root, storage.TierIndex)
		require.NoError(t, err)

		info, err := os.Stat(filepath.Join(root, "index"))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("invalid tier", func(t *testing.T) {
		_, err := NewStore(t.TempDir(), storage.Tier("bogus"))
		assert.ErrorIs(t, err, storage.ErrInvalidTier)
	})

	t.Run("empty root", func(t *testing.T) {
		_, err := NewStore("", storage.TierIndex)
		assert.Error(t, err)
	})

	t.Run("root is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
		_, err := NewStore(file, storage.TierIndex)
		assert.Error(t, err)
	})
}

func TestStore_CorruptFile(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewStore(root, storage.TierResult)
	require.NoError(t, err)

	path := filepath.Join(root, "result", "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"key":"broken","payl`), 0o644))

	_, err = store.Get(ctx, "broken")
	assert.ErrorIs(t, err, storage.ErrCorruptEntry)
}

func TestStore_NoTempFilesLeft(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewStore(root, storage.TierResult)
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "k", []byte("v")))

	entries, err := os.ReadDir(filepath.Join(root, "result"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "k.json", entries[0].Name())
}

func TestStore_Closed(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(t.TempDir(), storage.TierResult)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	assert.ErrorIs(t, store.Put(ctx, "k", []byte("v")), storage.ErrStorageClosed)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}
