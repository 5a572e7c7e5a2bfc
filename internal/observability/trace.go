// Package observability provides request tracing and per-run metrics for
// the poll loop.
package observability

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// sensitiveParams are query parameter names scrubbed from trace output.
var sensitiveParams = map[string]bool{
	"access_token":  true,
	"refresh_token": true,
	"token":         true,
	"api_key":       true,
	"client_secret": true,
	"session_token": true,
	"user":          true, // Cursor usage endpoint carries the user id here
}

// TraceWriter outputs human-readable trace information to stderr, with
// timestamps relative to session start.
type TraceWriter struct {
	mu        sync.Mutex
	writer    io.Writer
	startTime time.Time
}

// NewTraceWriter creates a TraceWriter that writes to stderr.
func NewTraceWriter() *TraceWriter {
	return NewTraceWriterTo(os.Stderr)
}

// NewTraceWriterTo creates a TraceWriter that writes to the given writer.
func NewTraceWriterTo(w io.Writer) *TraceWriter {
	return &TraceWriter{
		writer:    w,
		startTime: time.Now(),
	}
}

// CycleStart writes a poll-cycle start line.
// Format: [12.034s] Poll claude: start
func (t *TraceWriter) CycleStart(provider string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.writer, "[%.3fs] Poll %s: start\n", t.elapsed(), provider)
}

// CycleEnd writes a poll-cycle completion line.
func (t *TraceWriter) CycleEnd(provider string, err error, duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		fmt.Fprintf(t.writer, "[%.3fs] Poll %s: failed: %v\n", t.elapsed(), provider, err)
		return
	}
	fmt.Fprintf(t.writer, "[%.3fs] Poll %s: ok (%dms)\n", t.elapsed(), provider, duration.Milliseconds())
}

// Request writes a request line with sensitive query parameters redacted.
// Format: [12.034s]   -> GET /api/oauth/usage
func (t *TraceWriter) Request(method, rawURL string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.writer, "[%.3fs]   -> %s %s\n", t.elapsed(), method, scrubURL(rawURL))
}

// Response writes a response line.
// Format: [12.034s]   <- 200 (45ms)
func (t *TraceWriter) Response(status int, duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.writer, "[%.3fs]   <- %d (%dms)\n", t.elapsed(), status, duration.Milliseconds())
}

// Event writes a free-form trace line (refresh attempts, invalidations).
func (t *TraceWriter) Event(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.writer, "[%.3fs] %s\n", t.elapsed(), fmt.Sprintf(format, args...))
}

func (t *TraceWriter) elapsed() float64 {
	return time.Since(t.startTime).Seconds()
}

// scrubURL redacts sensitive query parameter values.
func scrubURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	q := u.Query()
	changed := false
	for name := range q {
		if sensitiveParams[strings.ToLower(name)] {
			q.Set(name, "REDACTED")
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}
