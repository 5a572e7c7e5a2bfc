package poller

import (
	"context"
	"sync"
	"time"

	"github.com/gaamiranda/Claude-Checker/internal/observability"
	"github.com/gaamiranda/Claude-Checker/internal/output"
)

// Poller is one provider's poll state machine.
type Poller interface {
	Provider() string
	// Poll runs one cycle. A call while a cycle is in flight is dropped.
	Poll(ctx context.Context)
	State() PollState
}

// snapshotRecorder is the slice of the history store pollers need.
type snapshotRecorder interface {
	Append(provider string, v any) error
}

// base carries the state machine shared by both pollers: the in-flight
// guard, the state transitions, and update notification. All transitions
// happen under mu; the fetch itself runs outside it.
type base struct {
	provider  string
	trace     *observability.TraceWriter
	collector *observability.SessionCollector
	history   snapshotRecorder

	mu     sync.Mutex
	inPoll bool
	state  PollState
	notify func(Update)
}

func newBase(provider string) base {
	return base{
		provider: provider,
		state:    PollState{Provider: provider, FirstLoad: true},
	}
}

func (b *base) Provider() string {
	return b.provider
}

// State returns a copy of the current state.
func (b *base) State() PollState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// SetNotify installs the update callback. Must be set before polling
// starts; the runner wires this to its updates channel.
func (b *base) SetNotify(fn func(Update)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notify = fn
}

// begin enters the Loading state. Returns false when a cycle is already
// in flight, which makes overlapping triggers no-ops.
func (b *base) begin() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inPoll {
		return false
	}
	b.inPoll = true
	b.state.Loading = true
	b.state.LastError = nil
	b.pushLocked()
	return true
}

// finish records the cycle outcome. On failure the previous snapshot is
// kept so the UI degrades to stale data instead of going blank.
func (b *base) finish(snap *UsageSnapshot, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inPoll = false
	b.state.Loading = false
	if err != nil {
		b.state.LastError = output.AsError(err)
	} else {
		b.state.Snapshot = snap
		b.state.LastUpdated = time.Now()
		b.state.FirstLoad = false
		b.state.LastError = nil
	}
	b.pushLocked()
}

func (b *base) pushLocked() {
	if b.notify != nil {
		b.notify(Update{Provider: b.provider, State: b.state})
	}
}

// runCycle wraps one fetch with tracing, metrics, and history recording.
func (b *base) runCycle(fetch func() (*UsageSnapshot, error)) {
	start := time.Now()
	if b.trace != nil {
		b.trace.CycleStart(b.provider)
	}

	snap, err := fetch()
	elapsed := time.Since(start)

	if b.collector != nil {
		b.collector.RecordPoll(err, elapsed)
	}
	if b.trace != nil {
		b.trace.CycleEnd(b.provider, err, elapsed)
	}
	if err == nil && b.history != nil {
		if herr := b.history.Append(b.provider, snap); herr != nil && b.trace != nil {
			b.trace.Event("history write failed: %v", herr)
		}
	}

	b.finish(snap, err)
}
