package auth

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaamiranda/Claude-Checker/internal/output"
)

// newTestStore returns a store with the keyring stubbed out as missing.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "state"), filepath.Join(dir, "credentials.json"))
	s.keyringGet = func() (string, error) { return "", errors.New("no keyring in tests") }
	return s
}

func writeCredFile(t *testing.T, s *Store, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(s.credFile, []byte(contents), 0600))
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get()
	require.Error(t, err)
	assert.Equal(t, output.CodeCredentialNotFound, output.AsError(err).Code)
}

func TestGetFromKeyring(t *testing.T) {
	s := newTestStore(t)
	s.keyringGet = func() (string, error) {
		return `{"claudeAiOauth": {"accessToken": "kc-token", "refreshToken": "kc-refresh", "expiresAt": 9999999999999}}`, nil
	}

	rec, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, "kc-token", rec.AccessToken)

	// The hit populated the in-process tier: a later Get succeeds even
	// after the keyring goes away.
	s.keyringGet = func() (string, error) { return "", errors.New("gone") }
	rec, err = s.Get()
	require.NoError(t, err)
	assert.Equal(t, "kc-token", rec.AccessToken)
}

func TestGetKeyringDecodeFailureIsHardError(t *testing.T) {
	s := newTestStore(t)
	s.keyringGet = func() (string, error) { return "{broken", nil }
	// A perfectly good file below must NOT be reached.
	writeCredFile(t, s, `{"claudeAiOauth": {"accessToken": "file-token"}}`)

	_, err := s.Get()
	require.Error(t, err)
	assert.Equal(t, output.CodeCredentialInvalid, output.AsError(err).Code)
}

func TestGetFromFileNestedAndLegacy(t *testing.T) {
	s := newTestStore(t)
	writeCredFile(t, s, `{"claudeAiOauth": {"accessToken": "nested-token"}}`)

	rec, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, "nested-token", rec.AccessToken)

	s2 := newTestStore(t)
	writeCredFile(t, s2, `{"access_token": "legacy-token", "expires_at": "123"}`)

	rec, err = s2.Get()
	require.NoError(t, err)
	assert.Equal(t, "legacy-token", rec.AccessToken)
	assert.Equal(t, int64(123), rec.ExpiresAt)
}

func TestGetFileDecodeFailure(t *testing.T) {
	s := newTestStore(t)
	writeCredFile(t, s, "not json at all")

	_, err := s.Get()
	require.Error(t, err)
	assert.Equal(t, output.CodeCredentialInvalid, output.AsError(err).Code)
}

func TestMemoryTierServesExpiredTokens(t *testing.T) {
	s := newTestStore(t)
	expired := time.Now().Add(-time.Hour).UnixMilli()
	writeCredFile(t, s, `{"access_token": "stale", "refresh_token": "r", "expires_at": "`+millis(expired)+`"}`)

	rec, err := s.Get()
	require.NoError(t, err)
	require.True(t, rec.IsExpired())

	// Remove the file; the memory tier still serves the expired record —
	// staleness is the caller's concern.
	require.NoError(t, os.Remove(s.credFile))
	rec, err = s.Get()
	require.NoError(t, err)
	assert.Equal(t, "stale", rec.AccessToken)
}

func TestPersistedTierSkipsExpiredWithoutRefreshToken(t *testing.T) {
	s := newTestStore(t)

	// Seed the persisted tier with an unusable record.
	require.NoError(t, s.persisted.Put(persistKey, &CredentialRecord{
		AccessToken: "dead",
		ExpiresAt:   time.Now().Add(-time.Hour).UnixMilli(),
	}))

	// A fallback file exists; resolution must skip the persisted tier and
	// land there instead of returning the dead record.
	writeCredFile(t, s, `{"claudeAiOauth": {"accessToken": "fresh"}}`)

	rec, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, "fresh", rec.AccessToken)
}

func TestPersistedTierServesExpiredWithRefreshToken(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.persisted.Put(persistKey, &CredentialRecord{
		AccessToken:  "dead",
		RefreshToken: "r",
		ExpiresAt:    time.Now().Add(-time.Hour).UnixMilli(),
	}))

	rec, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, "dead", rec.AccessToken, "expired-but-refreshable records are served")
}

func TestCacheRefreshedWritesThrough(t *testing.T) {
	dir := t.TempDir()
	stateDir := filepath.Join(dir, "state")
	credFile := filepath.Join(dir, "credentials.json")
	noKeyring := func() (string, error) { return "", errors.New("no keyring in tests") }

	s := NewStore(stateDir, credFile)
	s.keyringGet = noKeyring

	refreshed := &CredentialRecord{
		AccessToken:  "new",
		RefreshToken: "r",
		ExpiresAt:    time.Now().Add(time.Hour).UnixMilli(),
	}
	require.NoError(t, s.CacheRefreshed(refreshed))

	// Memory tier
	rec, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, "new", rec.AccessToken)

	// Persisted tier survives a "restart" (fresh store over the same dirs)
	s2 := NewStore(stateDir, credFile)
	s2.keyringGet = noKeyring
	rec, err = s2.Get()
	require.NoError(t, err)
	assert.Equal(t, "new", rec.AccessToken)
}

func TestInvalidateClearsBothTiers(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CacheRefreshed(&CredentialRecord{
		AccessToken:  "x",
		RefreshToken: "r",
		ExpiresAt:    time.Now().Add(time.Hour).UnixMilli(),
	}))

	s.Invalidate()

	_, err := s.Get()
	require.Error(t, err)
	assert.Equal(t, output.CodeCredentialNotFound, output.AsError(err).Code)
}

func TestInvalidateIfSourceChanged(t *testing.T) {
	s := newTestStore(t)
	writeCredFile(t, s, `{"claudeAiOauth": {"accessToken": "v1"}}`)

	_, err := s.Get()
	require.NoError(t, err)

	// No modification: idempotent, cache untouched.
	s.InvalidateIfSourceChanged()
	s.InvalidateIfSourceChanged()
	assert.NotNil(t, s.mem, "cache must survive no-op invalidation checks")

	// Simulate external re-auth: newer mtime on the file.
	writeCredFile(t, s, `{"claudeAiOauth": {"accessToken": "v2"}}`)
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(s.credFile, future, future))

	s.InvalidateIfSourceChanged()

	rec, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, "v2", rec.AccessToken, "external re-auth must be picked up")
}

func TestInvalidateIfSourceChangedNoCache(t *testing.T) {
	s := newTestStore(t)
	// Must not panic or error with an empty cache and a missing file.
	s.InvalidateIfSourceChanged()
}

func millis(v int64) string {
	return strconv.FormatInt(v, 10)
}
