package pipeline

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics is the read-only snapshot the Engine exposes per pipeline, per
// SPEC_FULL.md §4.3.
type Metrics struct {
	Name             string
	State            string
	Running          bool
	EventsProcessed  int64
	EventsDropped    int64
	ProcessingErrors int64
	UptimeSeconds    float64
	Sources          int
	Processors       int
	Sinks            int
	SinkWriteErrors  map[string]int64
	FailureReason    string
}

// counters holds the live atomic counters a running pipeline updates.
// Counters are monotonically non-decreasing while running and reset to
// zero only on restart (a fresh pipeline struct field set, never a
// decrement).
type counters struct {
	eventsProcessed  atomic.Int64
	eventsDropped    atomic.Int64
	processingErrors atomic.Int64

	mu              sync.Mutex
	sinkWriteErrors map[string]int64
}

func newCounters() *counters {
	return &counters{sinkWriteErrors: make(map[string]int64)}
}

func (c *counters) addSinkWriteError(sinkName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sinkWriteErrors[sinkName]++
}

func (c *counters) snapshotSinkErrors() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.sinkWriteErrors))
	for k, v := range c.sinkWriteErrors {
		out[k] = v
	}
	return out
}

func durationSeconds(start time.Time) float64 {
	if start.IsZero() {
		return 0
	}
	return time.Since(start).Seconds()
}
