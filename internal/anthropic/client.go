package anthropic

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
	usagePath = "/api/oauth/usage"

	// betaHeader opts the request into the OAuth usage API surface.
	betaHeader = "oauth-2025-04-20"

	requestTimeout = 15 * time.Second
)

// Client fetches usage from the Claude OAuth usage endpoint. The access
// token is supplied per call so credential resolution stays with the
// caller.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// Trace and Collector are optional; nil disables them.
	Trace     *observability.TraceWriter
	Collector *observability.SessionCollector
}

// NewClient creates a usage client for the given base URL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// FetchUsage retrieves the current usage windows for the account behind
// accessToken. A 401 or 403 is returned as a reauth-requiring error so
// the caller can decide whether a token refresh is worth attempting.
func (c *Client) FetchUsage(ctx context.Context, accessToken string) (*UsageResponse, error) {
	reqURL := c.baseURL + usagePath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("anthropic-beta", betaHeader)
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
		return nil, output.ErrNetwork(err)
	}
	defer resp.Body.Close()

	if c.Trace != nil {
		c.Trace.Response(resp.StatusCode, time.Since(start))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, output.ErrUnauthorized("Claude")
	case resp.StatusCode == http.StatusForbidden:
		return nil, output.ErrForbidden("Claude")
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, output.ErrAPI(resp.StatusCode, fmt.Sprintf("Usage request failed (HTTP %d): %s", resp.StatusCode, firstLine(body)))
	}

	var usage UsageResponse
	if err := json.NewDecoder(resp.Body).Decode(&usage); err != nil {
		return nil, output.ErrDecode("usage response", err)
	}
	return &usage, nil
}

func firstLine(b []byte) string {
	for i, c := range b {
		if c == '\n' {
			return string(b[:i])
		}
	}
	return string(b)
}
