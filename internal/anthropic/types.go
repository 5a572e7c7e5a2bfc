// Package anthropic fetches usage data from the Claude OAuth usage API.
package anthropic

import "time"

// UsageResponse is the usage endpoint payload. Every window is optional;
// accounts on older plans omit the model-specific one.
type UsageResponse struct {
	FiveHour     *Window     `json:"five_hour"`
	SevenDay     *Window     `json:"seven_day"`
	SevenDayOpus *Window     `json:"seven_day_opus"`
	ExtraUsage   *ExtraUsage `json:"extra_usage"`
}

// Window is one rate-limit window: how much of it is used and when it
// resets.
type Window struct {
	Utilization float64    `json:"utilization"`
	ResetsAt    *time.Time `json:"resets_at"`
}

// ExtraUsage is the monthly overage spend, in cents.
type ExtraUsage struct {
	SpendCents int64 `json:"spend_cents"`
	LimitCents int64 `json:"limit_cents"`
}

// Percent returns the window utilization normalized to 0–100.
//
// The API has shipped utilization both as a 0–1 fraction and as a 0–100
// percentage. Values at or below 1.0 are treated as fractions, which is
// ambiguous at exactly 1.0 (could mean 1% on the percentage scale); kept
// as-is to match the upstream convention.
func (w *Window) Percent() float64 {
	if w.Utilization <= 1.0 {
		return w.Utilization * 100
	}
	return w.Utilization
}
