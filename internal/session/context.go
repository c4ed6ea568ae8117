package session

import (
	"sync"
	"time"

	"github.com/geostash/engine/pkg/core"
)

// Context holds the state of the current interaction session: when it
// started and the running frame and scan counters.
type Context struct {
	mu     sync.RWMutex
	record core.SessionRecord
	active bool
}

// NewContext creates a new Context with no active session
func NewContext() *Context {
	return &Context{}
}

// Begin marks a session as started at the given time, resetting counters.
func (c *Context) Begin(start time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record = core.SessionRecord{StartedAt: start}
	c.active = true
}

// Active reports whether a session is in progress
func (c *Context) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Record returns a copy of the current session record
func (c *Context) Record() core.SessionRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.record
}

// IncFrames bumps the processed landmark frame counter
func (c *Context) IncFrames() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record.FrameCount++
}

// IncScans bumps the completed scan counter
func (c *Context) IncScans() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record.ScanCount++
}

// End closes the session at the given time and returns the final record.
func (c *Context) End(end time.Time) core.SessionRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record.EndedAt = end
	c.active = false
	return c.record
}
