package cursor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaamiranda/Claude-Checker/internal/output"
	"github.com/gaamiranda/Claude-Checker/internal/statestore"
)

func TestFetchUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/usage", r.URL.Path)
		assert.Equal(t, "WorkosCursorSessionToken=abc123", r.Header.Get("Cookie"))

		w.Write([]byte(`{
			"gpt-4": {"numRequests": 320, "maxRequestUsage": 500},
			"startOfMonth": "2026-08-01T00:00:00Z",
			"usageBasedSpendCents": 1234,
			"usageBasedLimitCents": 5000
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "WorkosCursorSessionToken=abc123", srv.Client())
	usage, err := c.FetchUsage(context.Background())
	require.NoError(t, err)

	pct, ok := usage.Percent()
	require.True(t, ok)
	assert.InDelta(t, 64.0, pct, 0.001)

	require.NotNil(t, usage.SpendCents)
	assert.Equal(t, int64(1234), *usage.SpendCents)
	require.NotNil(t, usage.LimitCents)
	assert.Equal(t, int64(5000), *usage.LimitCents)
}

func TestPercentWithoutCap(t *testing.T) {
	u := &UsageResponse{Premium: &ModelUsage{NumRequests: 42}}
	_, ok := u.Percent()
	assert.False(t, ok)

	_, ok = (&UsageResponse{}).Percent()
	assert.False(t, ok)
}

func TestFetchUsageRejectedCookie(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		c := NewClient(srv.URL, "stale", srv.Client())
		_, err := c.FetchUsage(context.Background())
		require.Error(t, err)

		e := output.AsError(err)
		assert.Equal(t, output.CodeUnauthorized, e.Code)
		assert.Contains(t, e.Hint, "cursor set-token")
		srv.Close()
	}
}

func TestFetchIdentity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/me", r.URL.Path)
		w.Write([]byte(`{"email": "dev@example.com", "name": "Dev"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "cookie", srv.Client())
	id, err := c.FetchIdentity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", id.Email)
}

func TestFetchUsageServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "cookie", srv.Client())
	_, err := c.FetchUsage(context.Background())
	require.Error(t, err)
	assert.Equal(t, output.CodeAPI, output.AsError(err).Code)
}

func newTestTokenStore(t *testing.T, keyringWorks bool) (*TokenStore, *string) {
	t.Helper()
	var stored string
	missing := errors.New("secret not found in keyring")

	s := &TokenStore{state: statestore.NewStore(t.TempDir())}
	if keyringWorks {
		s.keyringGet = func() (string, error) {
			if stored == "" {
				return "", missing
			}
			return stored, nil
		}
		s.keyringSet = func(token string) error { stored = token; return nil }
		s.keyringDelete = func() error { stored = ""; return nil }
	} else {
		broken := errors.New("no secret service available")
		s.keyringGet = func() (string, error) { return "", broken }
		s.keyringSet = func(string) error { return broken }
		s.keyringDelete = func() error { return broken }
	}
	return s, &stored
}

func TestTokenStoreKeyring(t *testing.T) {
	s, stored := newTestTokenStore(t, true)

	assert.Empty(t, s.Get())
	require.NoError(t, s.Set("  cookie-value  "))
	assert.Equal(t, "cookie-value", *stored, "stored trimmed")
	assert.Equal(t, "cookie-value", s.Get())

	require.NoError(t, s.Clear())
	assert.Empty(t, s.Get())
}

func TestTokenStoreFileFallback(t *testing.T) {
	s, _ := newTestTokenStore(t, false)

	require.NoError(t, s.Set("cookie-value"))
	assert.Equal(t, "cookie-value", s.Get())

	require.NoError(t, s.Clear())
	assert.Empty(t, s.Get())
}

func TestTokenStoreSetClearsStaleFileCopy(t *testing.T) {
	s, _ := newTestTokenStore(t, true)

	// Simulate an earlier fallback write.
	require.NoError(t, s.state.Put(stateKey, "old-cookie"))

	require.NoError(t, s.Set("new-cookie"))
	_, ok, err := s.state.Get(stateKey)
	require.NoError(t, err)
	assert.False(t, ok, "file copy removed after keyring write")
}
