// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector. Counters are created on first use and updated
// without locks from any goroutine.

package control

import (
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

// Metric names used by the server.
const (
	MetricConnsAccepted = "conns_accepted"
	MetricConnsClosed   = "conns_closed"
	MetricRequests      = "requests"
	MetricParseFailures = "parse_failures"
	MetricRejected      = "rejected"
	MetricHandlerFaults = "handler_faults"
	MetricAsyncWrites   = "async_writes"
	MetricWriteErrors   = "write_errors"
	MetricQueueFull     = "queue_full"
	MetricBytesRead     = "bytes_read"
	MetricBytesWritten  = "bytes_written"
	MetricPoolMisses    = "pool_misses"
)

// MetricsRegistry holds named counters.
type MetricsRegistry struct {
	counters *xsync.Map[string, *xsync.Counter]
	updated  atomic.Int64
}

// NewMetricsRegistry creates a registry with the given counters
// pre-registered so that they show up in snapshots at zero.
func NewMetricsRegistry(names ...string) *MetricsRegistry {
	mr := &MetricsRegistry{counters: xsync.NewMap[string, *xsync.Counter]()}
	for _, n := range names {
		mr.Counter(n)
	}
	return mr
}

// Counter returns the counter registered under name, creating it if needed.
func (mr *MetricsRegistry) Counter(name string) *xsync.Counter {
	if c, ok := mr.counters.Load(name); ok {
		return c
	}
	c, _ := mr.counters.LoadOrStore(name, xsync.NewCounter())
	return c
}

func (mr *MetricsRegistry) Inc(name string) {
	mr.Counter(name).Inc()
	mr.touch()
}

func (mr *MetricsRegistry) Add(name string, delta int64) {
	mr.Counter(name).Add(delta)
	mr.touch()
}

// Set overwrites the value of name, turning it into a gauge.
func (mr *MetricsRegistry) Set(name string, value int64) {
	c := mr.Counter(name)
	c.Reset()
	c.Add(value)
	mr.touch()
}

func (mr *MetricsRegistry) Value(name string) int64 {
	if c, ok := mr.counters.Load(name); ok {
		return c.Value()
	}
	return 0
}

func (mr *MetricsRegistry) touch() { mr.updated.Store(time.Now().UnixNano()) }

// Updated reports when any metric last changed.
func (mr *MetricsRegistry) Updated() time.Time {
	ns := mr.updated.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// GetSnapshot returns the current value of every metric.
func (mr *MetricsRegistry) GetSnapshot() map[string]int64 {
	out := make(map[string]int64, mr.counters.Size())
	mr.counters.Range(func(k string, c *xsync.Counter) bool {
		out[k] = c.Value()
		return true
	})
	return out
}
