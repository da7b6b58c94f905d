package vectorindex

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countStub struct {
	n   int
	err error
}

func (c countStub) Count(context.Context) (int, error) { return c.n, c.err }

func TestManager_StatusBeforeRebuild(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "faiss_data"), countStub{})

	st, err := m.Status()
	require.NoError(t, err)
	assert.Equal(t, &Status{
		Dimension: 384,
		IndexType: "IndexFlatL2 + IndexIDMap",
	}, st)
}

func TestManager_Rebuild(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "faiss_data")
	m := NewManager(dir, countStub{})

	res, err := m.Rebuild()
	require.NoError(t, err)
	assert.Equal(t, &RebuildResult{Result: "rebuilt", Dimension: 384, FilesCreated: 3}, res)

	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	st, err := m.Status()
	require.NoError(t, err)
	assert.True(t, st.IndexExists)
	assert.True(t, st.MetadataExists)
	assert.True(t, st.TextsExists)
	assert.Zero(t, st.RecordCount)

	// Rebuilding again overwrites in place.
	_, err = m.Rebuild()
	assert.NoError(t, err)
}

func TestManager_Sync(t *testing.T) {
	m := NewManager(t.TempDir(), countStub{n: 7})
	res, err := m.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &SyncResult{Result: "synced", TicketsSynced: 7, Dimension: 384}, res)

	m = NewManager(t.TempDir(), countStub{err: errors.New("db down")})
	_, err = m.Sync(context.Background())
	assert.ErrorContains(t, err, "db down")
}
