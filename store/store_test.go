package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStoreRoundTrip(t *testing.T, s Store) {
	t.Helper()
	storedAt := time.Unix(1700000000, 0)
	body := []byte("HTTP/1.1 200 OK\r\n\r\nhello offline world")

	require.NoError(t, s.Put("v1:GET:/dashboard", storedAt, body))

	got, ok, err := s.Get("v1:GET:/dashboard")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, body, got)

	_, ok, err = s.Get("v1:GET:/missing")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, s.Has("v1:GET:/dashboard"))
	assert.False(t, s.Has("v1:GET:/missing"))

	require.NoError(t, s.Purge("v1:GET:/dashboard"))
	assert.False(t, s.Has("v1:GET:/dashboard"))
}

func testStorePrefixScoping(t *testing.T, s Store) {
	t.Helper()
	storedAt := time.Unix(1700000000, 0)
	require.NoError(t, s.Put("v1:GET:/", storedAt, []byte("one")))
	require.NoError(t, s.Put("v1:GET:/fees", storedAt, []byte("two")))
	require.NoError(t, s.Put("v2:GET:/", storedAt, []byte("three")))

	keys := make([]string, 0)
	s.AllKeys("v1:", func(key string) {
		keys = append(keys, key)
	})
	assert.ElementsMatch(t, []string{"v1:GET:/", "v1:GET:/fees"}, keys)

	entries, err := s.Entries("v2:")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "v2:GET:/", entries[0].Key)
	assert.Equal(t, []byte("three"), entries[0].Bytes)
	assert.Equal(t, storedAt.Unix(), entries[0].StoredAt.Unix())
}

func TestSQLiteStore(t *testing.T) {
	s := NewSQLiteStore(filepath.Join(t.TempDir(), "snapshots.db"))
	testStoreRoundTrip(t, s)
	testStorePrefixScoping(t, s)
}

func TestSQLiteStorePersistsAcrossOpens(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "snapshots.db")
	first := NewSQLiteStore(filename)
	require.NoError(t, first.Put("v1:GET:/", time.Now(), []byte("survives")))

	second := NewSQLiteStore(filename)
	got, ok, err := second.Get("v1:GET:/")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("survives"), got)
}

func TestSQLiteStoreReplacesExistingKey(t *testing.T) {
	s := NewSQLiteStore(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, s.Put("v1:GET:/", time.Now(), []byte("old")))
	require.NoError(t, s.Put("v1:GET:/", time.Now(), []byte("new")))

	got, ok, err := s.Get("v1:GET:/")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("new"), got)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	testStoreRoundTrip(t, s)
	testStorePrefixScoping(t, s)
}
