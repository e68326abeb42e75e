package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	store := NewFileStore(path)

	p := NewProgress()
	p.ProcessedConversations["c1"] = true
	p.ProcessedChunks["abc123"] = true
	p.Stats.ChunksStored = 1

	require.NoError(t, store.Save(p))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.True(t, loaded.ProcessedConversations["c1"])
	assert.True(t, loaded.ProcessedChunks["abc123"])
	assert.Equal(t, 1, loaded.Stats.ChunksStored)
	assert.False(t, loaded.UpdatedAt.IsZero())
}

func TestFileStoreLoadMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "does-not-exist.json"))

	p, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, p.ProcessedConversations)
	assert.Empty(t, p.ProcessedChunks)
}

func TestFileStoreLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Load()
	assert.Error(t, err)
}

func TestChunkHashScopedToOwner(t *testing.T) {
	h1 := ChunkHash("owner-a", "same content")
	h2 := ChunkHash("owner-b", "same content")
	assert.NotEqual(t, h1, h2, "different owners must hash differently")
	assert.Equal(t, h1, ChunkHash("owner-a", "same content"))
}
