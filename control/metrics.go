// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for delivery accounting. Exposes counters in
// a thread-safe map with dynamic registration of debug probes.

package control

import (
	"sync"
	"time"

	"github.com/momentics/hioload-inotify/api"
)

// Well-known counter keys maintained by the service.
const (
	KeyDelivered      = "events_delivered"
	KeyDroppedNoWatch = "events_dropped_no_watch"
	KeyQueueFull      = "events_queue_full_stalls"
	KeyOverflow       = "overflow_events"
	KeyWatchesLive    = "watches_live"
	KeyChannelsOpen   = "channels_open"
)

// Ensure compile-time interface compliance.
var _ api.Control = (*MetricsRegistry)(nil)

// MetricsRegistry holds counters, gauges and debug probes.
type MetricsRegistry struct {
	mu       sync.RWMutex
	counters map[string]int64
	probes   map[string]func() any
	updated  time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		counters: make(map[string]int64),
		probes:   make(map[string]func() any),
	}
}

// Inc increments a counter key by delta.
func (mr *MetricsRegistry) Inc(key string, delta int64) {
	mr.mu.Lock()
	mr.counters[key] += delta
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Set overwrites a gauge-style counter.
func (mr *MetricsRegistry) Set(key string, value int64) {
	mr.mu.Lock()
	mr.counters[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Counter returns the current value of one key.
func (mr *MetricsRegistry) Counter(key string) int64 {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.counters[key]
}

// Stats returns a snapshot of counters and probe results.
func (mr *MetricsRegistry) Stats() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.counters)+len(mr.probes))
	for k, v := range mr.counters {
		out[k] = v
	}
	for k, fn := range mr.probes {
		out[k] = fn()
	}
	return out
}

// RegisterDebugProbe attaches a live introspection callback.
func (mr *MetricsRegistry) RegisterDebugProbe(name string, fn func() any) {
	mr.mu.Lock()
	mr.probes[name] = fn
	mr.mu.Unlock()
}
