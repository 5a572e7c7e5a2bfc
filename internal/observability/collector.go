package observability

import (
	"sync"
	"time"
)

// SessionMetrics aggregates metrics for an entire run.
type SessionMetrics struct {
	StartTime      time.Time
	EndTime        time.Time
	TotalPolls     int
	FailedPolls    int
	TotalRequests  int
	TotalRetries   int
	TokenRefreshes int
	TotalLatency   time.Duration
}

// SessionCollector accumulates metrics across a run. Safe for concurrent
// use; uses counters instead of unbounded slices.
type SessionCollector struct {
	mu sync.Mutex

	startTime      time.Time
	totalPolls     int
	failedPolls    int
	totalRequests  int
	totalRetries   int
	tokenRefreshes int
	totalLatency   time.Duration
}

// NewSessionCollector creates a new SessionCollector.
func NewSessionCollector() *SessionCollector {
	return &SessionCollector{startTime: time.Now()}
}

// RecordPoll records the outcome of a poll cycle.
func (c *SessionCollector) RecordPoll(err error, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalPolls++
	c.totalLatency += duration
	if err != nil {
		c.failedPolls++
	}
}

// RecordRequest records a single HTTP request.
func (c *SessionCollector) RecordRequest() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

// RecordRetry records a retried usage request after a forced refresh.
func (c *SessionCollector) RecordRetry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRetries++
}

// RecordRefresh records a token refresh attempt.
func (c *SessionCollector) RecordRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokenRefreshes++
}

// Summary returns a snapshot of the collected metrics.
func (c *SessionCollector) Summary() SessionMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return SessionMetrics{
		StartTime:      c.startTime,
		EndTime:        time.Now(),
		TotalPolls:     c.totalPolls,
		FailedPolls:    c.failedPolls,
		TotalRequests:  c.totalRequests,
		TotalRetries:   c.totalRetries,
		TokenRefreshes: c.tokenRefreshes,
		TotalLatency:   c.totalLatency,
	}
}
