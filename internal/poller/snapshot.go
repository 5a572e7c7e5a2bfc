// Package poller drives the periodic usage polls: one state machine per
// provider, a shared runner, and the snapshot model the UI renders.
package poller

import (
	"time"

	"github.com/gaamiranda/Claude-Checker/internal/anthropic"
	"github.com/gaamiranda/Claude-Checker/internal/cursor"
	"github.com/gaamiranda/Claude-Checker/internal/output"
)

// Provider names used in snapshots, history buckets, and trace lines.
const (
	ProviderClaude = "claude"
	ProviderCursor = "cursor"
)

// WindowStat is one usage window, normalized to a 0–100 percentage.
type WindowStat struct {
	Percent  float64    `json:"percent"`
	ResetsAt *time.Time `json:"resets_at,omitempty"`
}

// Overage is the monthly usage-based spend against its limit, in dollars.
type Overage struct {
	SpentUSD float64 `json:"spent_usd"`
	LimitUSD float64 `json:"limit_usd"`
}

// UsageSnapshot is one complete reading from a provider. Windows the
// provider did not report are nil. A snapshot is built whole and swapped
// in atomically; the UI never sees a half-updated one.
type UsageSnapshot struct {
	Provider     string      `json:"provider"`
	Session      *WindowStat `json:"session,omitempty"`
	Weekly       *WindowStat `json:"weekly,omitempty"`
	Model        *WindowStat `json:"model,omitempty"`
	Overage      *Overage    `json:"overage,omitempty"`
	AccountEmail string      `json:"account_email,omitempty"`
	FetchedAt    time.Time   `json:"fetched_at"`
}

// PollState is what a poller exposes between and during cycles. Snapshot
// is the last successful reading and survives failed cycles.
type PollState struct {
	Provider    string
	Loading     bool
	FirstLoad   bool
	LastError   *output.Error
	LastUpdated time.Time
	Snapshot    *UsageSnapshot
}

// Update is pushed on the runner's channel whenever a poller's state
// changes.
type Update struct {
	Provider string
	State    PollState
}

func claudeSnapshot(u *anthropic.UsageResponse) *UsageSnapshot {
	snap := &UsageSnapshot{Provider: ProviderClaude, FetchedAt: time.Now()}
	if u.FiveHour != nil {
		snap.Session = &WindowStat{Percent: u.FiveHour.Percent(), ResetsAt: u.FiveHour.ResetsAt}
	}
	if u.SevenDay != nil {
		snap.Weekly = &WindowStat{Percent: u.SevenDay.Percent(), ResetsAt: u.SevenDay.ResetsAt}
	}
	if u.SevenDayOpus != nil {
		snap.Model = &WindowStat{Percent: u.SevenDayOpus.Percent(), ResetsAt: u.SevenDayOpus.ResetsAt}
	}
	if u.ExtraUsage != nil {
		snap.Overage = &Overage{
			SpentUSD: float64(u.ExtraUsage.SpendCents) / 100,
			LimitUSD: float64(u.ExtraUsage.LimitCents) / 100,
		}
	}
	return snap
}

func cursorSnapshot(u *cursor.UsageResponse, email string) *UsageSnapshot {
	snap := &UsageSnapshot{Provider: ProviderCursor, AccountEmail: email, FetchedAt: time.Now()}
	if pct, ok := u.Percent(); ok {
		var resetsAt *time.Time
		if u.StartOfMonth != nil {
			t := u.StartOfMonth.AddDate(0, 1, 0)
			resetsAt = &t
		}
		snap.Session = &WindowStat{Percent: pct, ResetsAt: resetsAt}
	}
	if u.SpendCents != nil || u.LimitCents != nil {
		o := &Overage{}
		if u.SpendCents != nil {
			o.SpentUSD = float64(*u.SpendCents) / 100
		}
		if u.LimitCents != nil {
			o.LimitUSD = float64(*u.LimitCents) / 100
		}
		snap.Overage = o
	}
	return snap
}
