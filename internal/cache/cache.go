package cache

import (
	"sync"

	"github.com/geostash/engine/pkg/core"
)

// CapsuleCache caches the current capsule snapshot so the per-position hot
// path (proximity, radar, nearest-selection) never reads the database.
// Latency in these calls is critical to quickly process incoming data.
type CapsuleCache struct {
	m        sync.RWMutex
	capsules map[string]core.Capsule
	order    []string
}

func NewCapsuleCache() *CapsuleCache {
	return &CapsuleCache{
		capsules: make(map[string]core.Capsule),
	}
}

func (c *CapsuleCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.capsules = make(map[string]core.Capsule)
	c.order = nil
}

func (c *CapsuleCache) Get(id string) (core.Capsule, bool) {
	c.m.RLock()
	defer c.m.RUnlock()
	if cp, ok := c.capsules[id]; ok {
		return cp, true
	}
	return core.Capsule{}, false
}

// ReplaceAll swaps in a new snapshot. Capsules already known keep their
// first-seen position; capsules absent from the snapshot are dropped.
func (c *CapsuleCache) ReplaceAll(snapshot []core.Capsule) {
	c.m.Lock()
	defer c.m.Unlock()

	next := make(map[string]core.Capsule, len(snapshot))
	for _, cp := range snapshot {
		next[cp.ID] = cp
	}

	order := make([]string, 0, len(snapshot))
	seen := make(map[string]bool, len(snapshot))
	for _, id := range c.order {
		if _, ok := next[id]; ok && !seen[id] {
			order = append(order, id)
			seen[id] = true
		}
	}
	for _, cp := range snapshot {
		if !seen[cp.ID] {
			order = append(order, cp.ID)
			seen[cp.ID] = true
		}
	}

	c.capsules = next
	c.order = order
}

// All returns the cached capsules in first-seen order.
func (c *CapsuleCache) All() []core.Capsule {
	c.m.RLock()
	defer c.m.RUnlock()
	out := make([]core.Capsule, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.capsules[id])
	}
	return out
}

func (c *CapsuleCache) Len() int {
	c.m.RLock()
	defer c.m.RUnlock()
	return len(c.capsules)
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
