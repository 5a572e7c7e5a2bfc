// Package cursor fetches usage data from Cursor's cookie-authenticated
// dashboard API.
package cursor

import "time"

// UsageResponse is the dashboard usage payload. Cursor keys premium usage
// under the model name; the spend fields are absent on plans without
// usage-based pricing.
type UsageResponse struct {
	Premium      *ModelUsage `json:"gpt-4"`
	StartOfMonth *time.Time  `json:"startOfMonth"`

	SpendCents *int64 `json:"usageBasedSpendCents"`
	LimitCents *int64 `json:"usageBasedLimitCents"`
}

// ModelUsage is the per-model request counter. MaxRequestUsage is nil on
// unlimited plans.
type ModelUsage struct {
	NumRequests     int  `json:"numRequests"`
	MaxRequestUsage *int `json:"maxRequestUsage"`
}

// Percent returns premium request usage as 0–100. The second return is
// false when the plan has no request cap.
func (u *UsageResponse) Percent() (float64, bool) {
	if u.Premium == nil || u.Premium.MaxRequestUsage == nil || *u.Premium.MaxRequestUsage <= 0 {
		return 0, false
	}
	return float64(u.Premium.NumRequests) / float64(*u.Premium.MaxRequestUsage) * 100, true
}

// Identity is the account behind the session cookie.
type Identity struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}
