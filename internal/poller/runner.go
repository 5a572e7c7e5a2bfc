package poller

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gaamiranda/Claude-Checker/internal/observability"
)

// DefaultInterval is the poll period when the user does not override it.
const DefaultInterval = 5 * time.Minute

// watchDebounce collapses the burst of fsnotify events an atomic
// credential rewrite produces into one re-poll.
const watchDebounce = 500 * time.Millisecond

// Runner drives all pollers on a shared ticker. Each poller runs its
// cycle in its own goroutine; a slow provider never delays the others.
type Runner struct {
	pollers  []Poller
	interval time.Duration
	trace    *observability.TraceWriter

	// credFile, when set, is watched so an external re-authentication
	// triggers an immediate re-poll instead of waiting out the tick.
	credFile string

	updates chan Update
	trigger chan struct{}
}

// NewRunner creates a runner. credFile may be "" to disable file watching.
func NewRunner(interval time.Duration, credFile string, trace *observability.TraceWriter, pollers ...Poller) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	r := &Runner{
		pollers:  pollers,
		interval: interval,
		trace:    trace,
		credFile: credFile,
		updates:  make(chan Update, 16),
		trigger:  make(chan struct{}, 1),
	}
	for _, p := range pollers {
		if n, ok := p.(interface{ SetNotify(func(Update)) }); ok {
			n.SetNotify(r.push)
		}
	}
	return r
}

// Updates is the stream of state changes; consumed by the watch view.
func (r *Runner) Updates() <-chan Update {
	return r.updates
}

// Trigger requests an immediate poll. Non-blocking; triggers arriving
// while one is pending coalesce, and pollers already mid-cycle drop it.
func (r *Runner) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run polls immediately, then on every tick, trigger, or credential-file
// change, until ctx is cancelled. Cancellation is checked between cycles;
// in-flight requests finish under their own timeouts.
func (r *Runner) Run(ctx context.Context) error {
	watchEvents := r.watchCredFile(ctx)

	r.pollAll(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.pollAll(ctx)
		case <-r.trigger:
			r.pollAll(ctx)
		case <-watchEvents:
			timer := time.NewTimer(watchDebounce)
			debounce = timer.C
		case <-debounce:
			debounce = nil
			if r.trace != nil {
				r.trace.Event("credentials file changed, re-polling")
			}
			r.pollAll(ctx)
		}
	}
}

func (r *Runner) pollAll(ctx context.Context) {
	for _, p := range r.pollers {
		go p.Poll(ctx)
	}
}

// push forwards an update, dropping it if the consumer is behind. State
// is a snapshot, so a dropped intermediate update is superseded by the
// next one.
func (r *Runner) push(u Update) {
	select {
	case r.updates <- u:
	default:
	}
}

// watchCredFile watches the credentials file's directory (the file itself
// is replaced atomically on re-auth, so watching the path directly would
// lose the watch). Returns nil when watching is disabled or unavailable.
func (r *Runner) watchCredFile(ctx context.Context) <-chan struct{} {
	if r.credFile == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		if r.trace != nil {
			r.trace.Event("file watch unavailable: %v", err)
		}
		return nil
	}
	if err := watcher.Add(filepath.Dir(r.credFile)); err != nil {
		_ = watcher.Close()
		if r.trace != nil {
			r.trace.Event("file watch unavailable: %v", err)
		}
		return nil
	}

	events := make(chan struct{}, 1)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name != r.credFile {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				select {
				case events <- struct{}{}:
				default:
				}
			case <-watcher.Errors:
			}
		}
	}()
	return events
}
