package statestore

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	Token string `json:"token"`
	N     int    `json:"n"`
}

func TestPutGetRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	before := time.Now()
	require.NoError(t, store.Put("cred", testPayload{Token: "abc", N: 7}))

	entry, ok, err := store.Get("cred")
	require.NoError(t, err)
	require.True(t, ok, "entry should exist after Put")

	var p testPayload
	require.NoError(t, json.Unmarshal(entry.Payload, &p))
	assert.Equal(t, "abc", p.Token)
	assert.Equal(t, 7, p.N)
	assert.False(t, entry.SavedAt.Before(before), "SavedAt should be set at write time")
}

func TestGetMissing(t *testing.T) {
	store := NewStore(t.TempDir())

	_, ok, err := store.Get("nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	store := NewStore(t.TempDir())

	require.NoError(t, store.Put("cred", testPayload{Token: "x"}))
	require.NoError(t, store.Delete("cred"))

	_, ok, err := store.Get("cred")
	require.NoError(t, err)
	assert.False(t, ok, "entry should be gone after Delete")
}

func TestClear(t *testing.T) {
	store := NewStore(t.TempDir())

	require.NoError(t, store.Put("a", testPayload{}))
	require.NoError(t, store.Clear())

	_, err := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err), "state file should be removed")

	// Clear on a missing file is not an error
	require.NoError(t, store.Clear())
}

func TestCorruptedFileTreatedAsEmpty(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	require.NoError(t, os.WriteFile(store.Path(), []byte("{garbage"), 0600))

	_, ok, err := store.Get("cred")
	require.NoError(t, err)
	assert.False(t, ok)

	// And the store recovers on the next write.
	require.NoError(t, store.Put("cred", testPayload{Token: "y"}))
	entry, ok, err := store.Get("cred")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(entry.Payload), "y")
}

func TestFilePermissions(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Put("cred", testPayload{Token: "secret"}))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
