package cursor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gaamiranda/Claude-Checker/internal/observability"
	"github.com/gaamiranda/Claude-Checker/internal/output"
	"github.com/gaamiranda/Claude-Checker/internal/version"
)

const (
	usagePath    = "/api/usage"
	identityPath = "/api/auth/me"

	requestTimeout = 15 * time.Second
)

// Client talks to the Cursor dashboard API. The session cookie is sent
// verbatim; Cursor rotates its cookie names, so no parsing happens here.
type Client struct {
	baseURL    string
	cookie     string
	httpClient *http.Client

	Trace     *observability.TraceWriter
	Collector *observability.SessionCollector
}

// NewClient creates a client authenticated by the raw Cookie header value.
func NewClient(baseURL, cookie string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &Client{baseURL: baseURL, cookie: cookie, httpClient: httpClient}
}

// FetchUsage retrieves the current month's usage. A 401 or 403 means the
// session cookie is no longer valid and the user has to paste a new one.
func (c *Client) FetchUsage(ctx context.Context) (*UsageResponse, error) {
	var usage UsageResponse
	if err := c.get(ctx, usagePath, &usage); err != nil {
		return nil, err
	}
	return &usage, nil
}

// FetchIdentity retrieves the account email behind the cookie. Callers
// treat failures as cosmetic; usage data stands on its own.
func (c *Client) FetchIdentity(ctx context.Context) (*Identity, error) {
	var id Identity
	if err := c.get(ctx, identityPath, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	reqURL := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Cookie", c.cookie)
	req.Header.Set("User-Agent", version.UserAgent())

	if c.Trace != nil {
		c.Trace.Request(http.MethodGet, reqURL)
	}
	if c.Collector != nil {
		c.Collector.RecordRequest()
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return output.ErrNetwork(err)
	}
	defer resp.Body.Close()

	if c.Trace != nil {
		c.Trace.Response(resp.StatusCode, time.Since(start))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return output.ErrSessionToken()
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return output.ErrAPI(resp.StatusCode, fmt.Sprintf("Cursor request failed (HTTP %d): %s", resp.StatusCode, firstLine(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return output.ErrDecode("Cursor response", err)
	}
	return nil
}

func firstLine(b []byte) string {
	for i, c := range b {
		if c == '\n' {
			return string(b[:i])
		}
	}
	return string(b)
}
