package metrics

import (
	"net/http"
	"sync/atomic"
	"time"
)

// Collector tracks request and scheduled-task counters without any
// external metrics backend. Snapshot feeds the admin metrics endpoint.
type Collector struct {
	requests    atomic.Uint64
	errors      atomic.Uint64
	rateLimited atomic.Uint64
	durationMs  atomic.Uint64
	tasksOK     atomic.Uint64
	tasksFailed atomic.Uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	c.requests.Add(1)
	if status >= http.StatusInternalServerError {
		c.errors.Add(1)
	}
	if status == http.StatusTooManyRequests {
		c.rateLimited.Add(1)
	}
	c.durationMs.Add(uint64(duration.Milliseconds()))
}

func (c *Collector) RecordTask(failed bool) {
	if failed {
		c.tasksFailed.Add(1)
		return
	}
	c.tasksOK.Add(1)
}

func (c *Collector) Snapshot() map[string]any {
	total := c.requests.Load()
	totalMs := c.durationMs.Load()
	var avg float64
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":    total,
		"errorsTotal":      c.errors.Load(),
		"rateLimitedTotal": c.rateLimited.Load(),
		"avgDurationMs":    avg,
		"totalDurationMs":  totalMs,
		"tasksExecuted":    c.tasksOK.Load(),
		"tasksFailed":      c.tasksFailed.Load(),
	}
}
