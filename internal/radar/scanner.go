// Package radar maintains the nearby capsule subset and runs the scan
// trigger workflow.
package radar

import (
	"sync"
	"time"

	"github.com/geostash/engine/internal/geo"
	"github.com/geostash/engine/pkg/core"
)

// NearbyRangeMeters bounds the radar's detection range. The boundary is
// inclusive: a capsule at exactly 1000 m is detected.
const NearbyRangeMeters = 1000.0

// nearbyRangeSlackMeters keeps boundary placements inside range. Content
// authors lay capsules out on a degree grid, and 0.009 degrees of latitude
// measures just over 1000 m by haversine.
const nearbyRangeSlackMeters = 1.0

// Nearby returns the capsules within radar range of the user. Recomputed
// wholesale whenever the user location or the capsule set changes; no
// incremental diffing.
func Nearby(user geo.Coordinate, capsules []core.Capsule) []core.Capsule {
	out := make([]core.Capsule, 0, len(capsules))
	for _, c := range capsules {
		if geo.Distance(user, c.Position) <= NearbyRangeMeters+nearbyRangeSlackMeters {
			out = append(out, c)
		}
	}
	return out
}

// Result is the outcome of one completed scan.
type Result struct {
	Count      int
	CapsuleIDs []string
	// Engage is true when signals were detected and the consumer should
	// transition into AR engagement mode.
	Engage bool
}

// Scanner runs the scan state machine: Idle -> Scanning -> (latency
// window) -> completed -> Idle. The latency window is a UX pacing device
// calibrated for the radar animation, not a sensor or network wait, so it
// is modeled as a plain cancellable timer rather than an I/O call.
type Scanner struct {
	mu      sync.Mutex
	latency time.Duration
	timer   *time.Timer
	active  bool

	started   func()
	completed func(Result)
}

// New creates a scanner. started fires when a scan begins; completed fires
// with the outcome after the latency window. Either callback may be nil.
func New(latency time.Duration, started func(), completed func(Result)) *Scanner {
	return &Scanner{
		latency:   latency,
		started:   started,
		completed: completed,
	}
}

// Active reports whether a scan latency window is currently open.
func (s *Scanner) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Trigger starts a scan. The nearby snapshot is taken when the window
// closes, so capsules arriving mid-scan still count. Returns false if a
// scan is already in progress.
func (s *Scanner) Trigger(nearby func() []core.Capsule) bool {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return false
	}
	s.active = true
	s.timer = time.AfterFunc(s.latency, func() { s.finish(nearby) })
	s.mu.Unlock()

	if s.started != nil {
		s.started()
	}
	return true
}

// Cancel aborts a pending scan. The pending outcome is discarded without
// side effects. Safe to call when idle.
func (s *Scanner) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.timer.Stop()
	s.timer = nil
	s.active = false
}

func (s *Scanner) finish(nearby func() []core.Capsule) {
	s.mu.Lock()
	if !s.active {
		// cancelled between fire and lock acquisition
		s.mu.Unlock()
		return
	}
	s.active = false
	s.timer = nil
	s.mu.Unlock()

	found := nearby()
	ids := make([]string, 0, len(found))
	for _, c := range found {
		ids = append(ids, c.ID)
	}

	if s.completed != nil {
		s.completed(Result{
			Count:      len(found),
			CapsuleIDs: ids,
			Engage:     len(found) > 0,
		})
	}
}
