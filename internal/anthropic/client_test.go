package anthropic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaamiranda/Claude-Checker/internal/output"
)

func TestFetchUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/oauth/usage", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "oauth-2025-04-20", r.Header.Get("anthropic-beta"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"five_hour": {"utilization": 0.42, "resets_at": "2026-08-29T12:00:00Z"},
			"seven_day": {"utilization": 87.5},
			"extra_usage": {"spend_cents": 150, "limit_cents": 2000}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	usage, err := c.FetchUsage(context.Background(), "tok")
	require.NoError(t, err)

	require.NotNil(t, usage.FiveHour)
	assert.InDelta(t, 42.0, usage.FiveHour.Percent(), 0.001)
	require.NotNil(t, usage.FiveHour.ResetsAt)
	assert.Equal(t, time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC), usage.FiveHour.ResetsAt.UTC())

	require.NotNil(t, usage.SevenDay)
	assert.InDelta(t, 87.5, usage.SevenDay.Percent(), 0.001)
	assert.Nil(t, usage.SevenDay.ResetsAt)

	assert.Nil(t, usage.SevenDayOpus)

	require.NotNil(t, usage.ExtraUsage)
	assert.Equal(t, int64(150), usage.ExtraUsage.SpendCents)
	assert.Equal(t, int64(2000), usage.ExtraUsage.LimitCents)
}

func TestWindowPercentNormalization(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"fraction", 0.05, 5.0},
		{"zero", 0, 0},
		{"boundary treated as fraction", 1.0, 100.0},
		{"already percent", 42.0, 42.0},
		{"over limit", 103.2, 103.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Window{Utilization: tt.in}
			assert.InDelta(t, tt.want, w.Percent(), 0.0001)
		})
	}
}

func TestFetchUsageAuthErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode string
	}{
		{"unauthorized", http.StatusUnauthorized, output.CodeUnauthorized},
		{"forbidden", http.StatusForbidden, output.CodeForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := NewClient(srv.URL, srv.Client())
			_, err := c.FetchUsage(context.Background(), "tok")
			require.Error(t, err)

			e := output.AsError(err)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.True(t, e.RequiresReauth())
		})
	}
}

func TestFetchUsageServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("overloaded\nsecond line ignored"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	_, err := c.FetchUsage(context.Background(), "tok")
	require.Error(t, err)

	e := output.AsError(err)
	assert.Equal(t, output.CodeAPI, e.Code)
	assert.Equal(t, http.StatusServiceUnavailable, e.HTTPStatus)
	assert.Contains(t, e.Message, "overloaded")
	assert.NotContains(t, e.Message, "second line")
}

func TestFetchUsageNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, &http.Client{Timeout: time.Second})
	_, err := c.FetchUsage(context.Background(), "tok")
	require.Error(t, err)
	assert.Equal(t, output.CodeNetwork, output.AsError(err).Code)
}

func TestFetchUsageBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{nope`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	_, err := c.FetchUsage(context.Background(), "tok")
	require.Error(t, err)
	assert.Equal(t, output.CodeDecode, output.AsError(err).Code)
}
