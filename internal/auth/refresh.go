package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gaamiranda/Claude-Checker/internal/output"
)

// clientID is the public OAuth client identifier for Claude Code. Not a
// secret; native-app client IDs ship with the binary.
const clientID = "9d1c250a-e61b-44d9-88ed-5944d1962f5e"

// refreshTimeout bounds the single token-endpoint call.
const refreshTimeout = 30 * time.Second

// Refresher exchanges a refresh token for a new access token. Stateless;
// results are cached by the caller via Store.CacheRefreshed.
type Refresher struct {
	tokenURL   string
	httpClient *http.Client
}

// NewRefresher creates a refresher against the given OAuth token endpoint.
func NewRefresher(tokenURL string, httpClient *http.Client) *Refresher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: refreshTimeout}
	}
	return &Refresher{tokenURL: tokenURL, httpClient: httpClient}
}

// Refresh exchanges rec's refresh token for a new access token and returns
// a new record. The caller's refresh token is preserved unless the server
// issues a new one; all non-token metadata is carried over unchanged.
func (r *Refresher) Refresh(ctx context.Context, rec *CredentialRecord) (*CredentialRecord, error) {
	refreshToken := strings.TrimSpace(rec.RefreshToken)
	if refreshToken == "" {
		return nil, output.ErrRefreshNoToken()
	}

	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	data.Set("client_id", clientID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, output.ErrNetwork(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var oauthErr struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if json.Unmarshal(body, &oauthErr) == nil && oauthErr.Error == "invalid_grant" {
			return nil, output.ErrRefreshInvalidGrant()
		}
		return nil, output.ErrRefreshHTTP(resp.StatusCode, oauthErr.ErrorDescription)
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, output.ErrDecode("token response", err)
	}

	refreshed := rec.clone()
	refreshed.AccessToken = tokenResp.AccessToken
	refreshed.ExpiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second).UnixMilli()
	if tokenResp.RefreshToken != "" {
		refreshed.RefreshToken = tokenResp.RefreshToken
	}

	return refreshed, nil
}
