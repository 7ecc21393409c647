package persistence

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/apigrid/catalogsync/internal/catalogsync/store"
	"github.com/apigrid/catalogsync/pkg/api"
)

func openTestAdapter(t *testing.T) *BoltAdapter {
	t.Helper()
	adapter, err := Open(filepath.Join(t.TempDir(), "snapshot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })
	return adapter
}

func sampleSnapshot() store.Snapshot {
	return store.Snapshot{
		Catalog: api.Catalog{
			ID:               "cat-1",
			Name:             "orders",
			CurrentVersionID: "v1",
		},
		Endpoints: []api.Endpoint{
			{ID: "e1", Path: "/orders", Method: "GET", RequiresAuth: true},
		},
		Connections: []api.Connection{
			{ID: "c1", Name: "upstream", BaseURL: "https://api.internal"},
		},
		LastSyncedAt:   time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC),
		PendingChanges: []string{"e1"},
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	adapter := openTestAdapter(t)

	require.NoError(t, adapter.Save(sampleSnapshot()))

	loaded, ok, err := adapter.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleSnapshot(), loaded)
}

func TestLoadWithoutSnapshot(t *testing.T) {
	adapter := openTestAdapter(t)

	_, ok, err := adapter.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveReplacesPreviousSnapshot(t *testing.T) {
	adapter := openTestAdapter(t)

	first := sampleSnapshot()
	require.NoError(t, adapter.Save(first))

	second := sampleSnapshot()
	second.Catalog.CurrentVersionID = "v2"
	second.PendingChanges = nil
	require.NoError(t, adapter.Save(second))

	loaded, ok, err := adapter.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", loaded.Catalog.CurrentVersionID)
	assert.Empty(t, loaded.PendingChanges)
}

func TestLoadDetectsCorruptSnapshot(t *testing.T) {
	adapter := openTestAdapter(t)
	require.NoError(t, adapter.Save(sampleSnapshot()))

	// Flip the stored checksum so the integrity check fails.
	err := adapter.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSnapshot).Put(keyChecksum, []byte("bogus"))
	})
	require.NoError(t, err)

	_, _, err = adapter.Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSnapshotCorrupt))
}

func TestLoadDetectsGarbledData(t *testing.T) {
	adapter := openTestAdapter(t)
	require.NoError(t, adapter.Save(sampleSnapshot()))

	err := adapter.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSnapshot).Put(keyCurrent, []byte("not snappy data"))
	})
	require.NoError(t, err)

	_, _, err = adapter.Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistence))
}

func TestOpenCreatesDatabaseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested.db")
	adapter, err := Open(path)
	require.NoError(t, err)
	defer adapter.Close()

	require.NoError(t, adapter.Save(sampleSnapshot()))
}
