// Package auth manages the Claude OAuth credential lifecycle: tiered
// resolution from cache, keychain, and file, plus token refresh.
package auth

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CredentialRecord holds the OAuth token pair and display metadata.
type CredentialRecord struct {
	AccessToken      string   `json:"access_token"`
	RefreshToken     string   `json:"refresh_token,omitempty"`
	ExpiresAt        int64    `json:"expires_at,omitempty"` // epoch millis; 0 means unknown
	Scopes           []string `json:"scopes,omitempty"`
	SubscriptionType string   `json:"subscription_type,omitempty"`
	RateLimitTier    string   `json:"rate_limit_tier,omitempty"`
}

// IsExpired reports whether the access token has expired. A record with no
// expiry instant is always treated as expired.
func (r *CredentialRecord) IsExpired() bool {
	if r.ExpiresAt == 0 {
		return true
	}
	return time.Now().UnixMilli() >= r.ExpiresAt
}

// WillExpireSoon reports whether the access token expires within the given
// window. Records with no expiry instant always report true.
func (r *CredentialRecord) WillExpireSoon(within time.Duration) bool {
	if r.ExpiresAt == 0 {
		return true
	}
	return time.Now().Add(within).UnixMilli() >= r.ExpiresAt
}

// HasRefreshToken reports whether a usable refresh token is present.
func (r *CredentialRecord) HasRefreshToken() bool {
	return strings.TrimSpace(r.RefreshToken) != ""
}

// ExpiresIn returns the remaining token lifetime (negative when expired).
func (r *CredentialRecord) ExpiresIn() time.Duration {
	return time.Until(time.UnixMilli(r.ExpiresAt))
}

// clone returns a copy so callers can't mutate cached state.
func (r *CredentialRecord) clone() *CredentialRecord {
	c := *r
	if r.Scopes != nil {
		c.Scopes = append([]string(nil), r.Scopes...)
	}
	return &c
}

// Wire shapes.
//
// The keychain and the nested credentials file carry the record inside a
// {"claudeAiOauth": {...}} envelope with camelCase keys and epoch-millis
// expiry. Older credentials files use a flat snake_case shape where
// expires_at is a numeric string.

type wireRecord struct {
	AccessToken      string   `json:"accessToken"`
	RefreshToken     string   `json:"refreshToken"`
	ExpiresAt        int64    `json:"expiresAt"`
	Scopes           []string `json:"scopes"`
	SubscriptionType string   `json:"subscriptionType"`
	RateLimitTier    string   `json:"rateLimitTier"`
}

type oauthEnvelope struct {
	ClaudeAiOauth *wireRecord `json:"claudeAiOauth"`
}

type legacyRecord struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
}

func (w *wireRecord) toRecord() *CredentialRecord {
	return &CredentialRecord{
		AccessToken:      w.AccessToken,
		RefreshToken:     w.RefreshToken,
		ExpiresAt:        w.ExpiresAt,
		Scopes:           w.Scopes,
		SubscriptionType: w.SubscriptionType,
		RateLimitTier:    w.RateLimitTier,
	}
}

// decodeEnvelope decodes the nested {"claudeAiOauth": {...}} shape.
func decodeEnvelope(data []byte) (*CredentialRecord, error) {
	var env oauthEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.ClaudeAiOauth == nil || env.ClaudeAiOauth.AccessToken == "" {
		return nil, fmt.Errorf("missing claudeAiOauth entry")
	}
	return env.ClaudeAiOauth.toRecord(), nil
}

// decodeCredentialsFile decodes the fallback file, trying the nested shape
// first and the legacy flat shape second.
func decodeCredentialsFile(data []byte) (*CredentialRecord, error) {
	if rec, err := decodeEnvelope(data); err == nil {
		return rec, nil
	}

	var legacy legacyRecord
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, err
	}
	if legacy.AccessToken == "" {
		return nil, fmt.Errorf("no access token in credentials file")
	}

	rec := &CredentialRecord{
		AccessToken:  legacy.AccessToken,
		RefreshToken: legacy.RefreshToken,
	}
	if legacy.ExpiresAt != "" {
		millis, err := strconv.ParseInt(legacy.ExpiresAt, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid expires_at %q: %w", legacy.ExpiresAt, err)
		}
		rec.ExpiresAt = millis
	}
	return rec, nil
}
