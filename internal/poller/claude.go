package poller

import (
	"context"
	"time"

	"github.com/gaamiranda/Claude-Checker/internal/anthropic"
	"github.com/gaamiranda/Claude-Checker/internal/auth"
	"github.com/gaamiranda/Claude-Checker/internal/observability"
	"github.com/gaamiranda/Claude-Checker/internal/output"
)

// refreshWindow is how close to expiry a token gets refreshed ahead of
// time instead of being sent as-is.
const refreshWindow = 5 * time.Minute

// refreshPolicy distinguishes a refresh that is nice to have from one the
// cycle cannot proceed without.
type refreshPolicy int

const (
	// opportunistic refreshes near-expiry tokens; on failure the cycle
	// continues with the old token if it is still valid.
	opportunistic refreshPolicy = iota
	// forced refreshes after the API rejected the token; failure ends
	// the cycle.
	forced
)

type claudeUsageFetcher interface {
	FetchUsage(ctx context.Context, accessToken string) (*anthropic.UsageResponse, error)
}

type tokenRefresher interface {
	Refresh(ctx context.Context, rec *auth.CredentialRecord) (*auth.CredentialRecord, error)
}

// ClaudePoller polls the Claude usage API, keeping the credential fresh
// along the way.
type ClaudePoller struct {
	base

	creds     *auth.Store
	refresher tokenRefresher
	client    claudeUsageFetcher
}

// NewClaudePoller wires a poller from its collaborators. trace, collector,
// and history may be nil.
func NewClaudePoller(creds *auth.Store, refresher tokenRefresher, client claudeUsageFetcher,
	trace *observability.TraceWriter, collector *observability.SessionCollector, history snapshotRecorder) *ClaudePoller {
	p := &ClaudePoller{
		base:      newBase(ProviderClaude),
		creds:     creds,
		refresher: refresher,
		client:    client,
	}
	p.trace = trace
	p.collector = collector
	p.history = history
	return p
}

// Poll runs one cycle: resolve credential, refresh if needed, fetch usage,
// retry once after a forced refresh on an auth rejection.
func (p *ClaudePoller) Poll(ctx context.Context) {
	if !p.begin() {
		return
	}
	p.runCycle(func() (*UsageSnapshot, error) {
		return p.fetch(ctx)
	})
}

func (p *ClaudePoller) fetch(ctx context.Context) (*UsageSnapshot, error) {
	p.creds.InvalidateIfSourceChanged()

	rec, err := p.creds.Get()
	if err != nil {
		return nil, err
	}

	if rec.WillExpireSoon(refreshWindow) {
		refreshed, err := p.refreshCredential(ctx, rec, opportunistic)
		if err != nil {
			return nil, err
		}
		rec = refreshed
	}

	usage, err := p.client.FetchUsage(ctx, rec.AccessToken)
	if err != nil && output.AsError(err).RequiresReauth() && rec.HasRefreshToken() {
		// The server disagrees with our expiry bookkeeping. One forced
		// refresh, one retry; a second rejection is terminal.
		refreshed, rerr := p.refreshCredential(ctx, rec, forced)
		if rerr != nil {
			return nil, rerr
		}
		if p.collector != nil {
			p.collector.RecordRetry()
		}
		usage, err = p.client.FetchUsage(ctx, refreshed.AccessToken)
	}
	if err != nil {
		if output.AsError(err).RequiresReauth() {
			p.creds.Invalidate()
		}
		return nil, err
	}

	return claudeSnapshot(usage), nil
}

// refreshCredential refreshes rec and writes the result through the cache
// tiers. Under the opportunistic policy a failed refresh of a still-valid
// token returns the old record so the cycle can proceed.
func (p *ClaudePoller) refreshCredential(ctx context.Context, rec *auth.CredentialRecord, policy refreshPolicy) (*auth.CredentialRecord, error) {
	if p.collector != nil {
		p.collector.RecordRefresh()
	}
	if p.trace != nil {
		p.trace.Event("refreshing access token")
	}

	refreshed, err := p.refresher.Refresh(ctx, rec)
	if err != nil {
		if policy == opportunistic && !rec.IsExpired() {
			if p.trace != nil {
				p.trace.Event("refresh failed, continuing with current token: %v", err)
			}
			return rec, nil
		}
		if output.AsError(err).RequiresReauth() {
			p.creds.Invalidate()
		}
		return nil, err
	}

	if err := p.creds.CacheRefreshed(refreshed); err != nil && p.trace != nil {
		p.trace.Event("credential cache write failed: %v", err)
	}
	return refreshed, nil
}
