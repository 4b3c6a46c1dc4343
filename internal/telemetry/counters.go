package telemetry

import (
	"sort"
	"sync"
)

// Counters is a concurrency-safe named-counter set for operational
// visibility: segments verified/rejected, ticks replayed, reward grants.
// Counter values never feed the simulation or the checkpoint hash.
type Counters struct {
	mu     sync.RWMutex
	values map[string]uint64
}

// Well-known counter keys.
const (
	KeySessionsStarted  = "sessions_started"
	KeySessionsEnded    = "sessions_ended"
	KeySegmentsVerified = "segments_verified"
	KeySegmentsRejected = "segments_rejected"
	KeyTicksReplayed    = "ticks_replayed"
	KeyRewardsApplied   = "rewards_applied"
	KeyTokenRefreshes   = "token_refreshes"
)

func NewCounters() *Counters {
	return &Counters{values: make(map[string]uint64)}
}

// Add increments a counter by delta.
func (c *Counters) Add(key string, delta uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.values[key] += delta
	c.mu.Unlock()
}

// Store overwrites a counter.
func (c *Counters) Store(key string, value uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.values[key] = value
	c.mu.Unlock()
}

// Get returns one counter's value.
func (c *Counters) Get(key string) uint64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[key]
}

// Snapshot copies the current values.
func (c *Counters) Snapshot() map[string]uint64 {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	snapshot := make(map[string]uint64, len(c.values))
	for k, v := range c.values {
		snapshot[k] = v
	}
	return snapshot
}

// Keys returns the counter names in sorted order for stable diagnostics
// output.
func (c *Counters) Keys() []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
