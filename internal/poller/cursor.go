package poller

import (
	"context"

	"github.com/gaamiranda/Claude-Checker/internal/cursor"
	"github.com/gaamiranda/Claude-Checker/internal/observability"
	"github.com/gaamiranda/Claude-Checker/internal/output"
)

type CursorAPI interface {
	FetchUsage(ctx context.Context) (*cursor.UsageResponse, error)
	FetchIdentity(ctx context.Context) (*cursor.Identity, error)
}

// CursorPoller polls the Cursor dashboard. The session cookie is opaque:
// no refresh, no expiry tracking, a rejection always means the user has
// to paste a new one.
type CursorPoller struct {
	base

	// cookie is read per cycle so set-token takes effect without restart.
	cookie    func() string
	newClient func(cookie string) CursorAPI
}

// NewCursorPoller wires a poller. cookie returns the current session
// cookie ("" when none is configured); newClient builds a client for it.
func NewCursorPoller(cookie func() string, newClient func(cookie string) CursorAPI,
	trace *observability.TraceWriter, collector *observability.SessionCollector, history snapshotRecorder) *CursorPoller {
	p := &CursorPoller{
		base:      newBase(ProviderCursor),
		cookie:    cookie,
		newClient: newClient,
	}
	p.trace = trace
	p.collector = collector
	p.history = history
	return p
}

// Poll runs one cycle.
func (p *CursorPoller) Poll(ctx context.Context) {
	if !p.begin() {
		return
	}
	p.runCycle(func() (*UsageSnapshot, error) {
		return p.fetch(ctx)
	})
}

func (p *CursorPoller) fetch(ctx context.Context) (*UsageSnapshot, error) {
	cookie := p.cookie()
	if cookie == "" {
		return nil, output.ErrSessionToken()
	}

	client := p.newClient(cookie)
	usage, err := client.FetchUsage(ctx)
	if err != nil {
		return nil, err
	}

	// Identity is decoration on the snapshot; losing it is not a failed
	// cycle.
	email := ""
	if id, err := client.FetchIdentity(ctx); err == nil {
		email = id.Email
	} else if p.trace != nil {
		p.trace.Event("identity fetch failed: %v", err)
	}

	return cursorSnapshot(usage, email), nil
}
