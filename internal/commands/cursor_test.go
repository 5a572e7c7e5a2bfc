package commands

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorStatusVerifiesCookie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/me", r.URL.Path)
		assert.Equal(t, "session-cookie", r.Header.Get("Cookie"))
		w.Write([]byte(`{"email": "dev@example.com"}`))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	app := newTestApp(t, &buf)
	app.Config.CursorBaseURL = srv.URL
	app.Config.CursorCookie = "session-cookie"

	require.NoError(t, runCmd(t, app, newCursorStatusCmd(), nil))

	data := decodeResponse(t, &buf)
	assert.Equal(t, true, data["configured"])
	assert.Equal(t, true, data["valid"])
	assert.Equal(t, "dev@example.com", data["email"])
}

func TestCursorStatusRejectedCookie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	app := newTestApp(t, &buf)
	app.Config.CursorBaseURL = srv.URL
	app.Config.CursorCookie = "stale"

	require.NoError(t, runCmd(t, app, newCursorStatusCmd(), nil))

	data := decodeResponse(t, &buf)
	assert.Equal(t, true, data["configured"])
	assert.Equal(t, false, data["valid"])
	assert.Contains(t, data, "error")
}

func TestCursorSetTokenFromArg(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"email": "dev@example.com"}`))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	app := newTestApp(t, &buf)
	app.Config.CursorBaseURL = srv.URL

	require.NoError(t, runCmd(t, app, newCursorSetTokenCmd(), []string{"  new-cookie  "}))

	data := decodeResponse(t, &buf)
	assert.Equal(t, "stored", data["status"])
	assert.Equal(t, "dev@example.com", data["email"])
	assert.Equal(t, "new-cookie", app.CursorTokens.Get(), "stored trimmed")
}

func TestCursorClearToken(t *testing.T) {
	var buf bytes.Buffer
	app := newTestApp(t, &buf)
	require.NoError(t, app.CursorTokens.Set("cookie"))

	require.NoError(t, runCmd(t, app, newCursorClearTokenCmd(), nil))

	assert.Empty(t, app.CursorTokens.Get())
	data := decodeResponse(t, &buf)
	assert.Equal(t, "cleared", data["status"])
}
