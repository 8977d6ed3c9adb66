package ratelimit

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	db, err := bolt.Open(filepath.Join(t.TempDir(), "state.db"), 0o600, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewBoltStore(db)
	require.NoError(t, err)
	return store
}

func TestBoltStoreEmptyLoad(t *testing.T) {
	store := openTestStore(t)

	_, found, err := store.Load()
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBoltStoreRoundTrip(t *testing.T) {
	store := openTestStore(t)

	want := Record{RequestsToday: 7, LastResetDate: "2026-08-24"}
	require.NoError(t, store.Save(want))

	got, found, err := store.Load()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, got)
}

func TestTrackerSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.db")

	db, err := bolt.Open(path, 0o600, nil)
	require.NoError(t, err)
	store, err := NewBoltStore(db)
	require.NoError(t, err)
	tr := New(store, 25)
	require.NoError(t, tr.Increment())
	require.NoError(t, tr.Increment())
	require.NoError(t, db.Close())

	db, err = bolt.Open(path, 0o600, nil)
	require.NoError(t, err)
	defer db.Close()
	store, err = NewBoltStore(db)
	require.NoError(t, err)

	st, err := New(store, 25).Status()
	require.NoError(t, err)
	assert.Equal(t, 2, st.RequestsToday)
}
