// Package interaction drives the selection state machine from gesture
// transitions and pointer picks.
package interaction

import (
	"sync"
	"time"

	"github.com/geostash/engine/internal/geo"
	"github.com/geostash/engine/internal/gesture"
	"github.com/geostash/engine/pkg/core"
)

// Selection identifies the currently selected capsule. Zero value means no
// selection.
type Selection struct {
	CapsuleID string
	// Source records what produced the selection, "gesture" or "pointer".
	Source string
	// Distance is the user-to-capsule distance at selection time, meters.
	// Pointer picks carry -1 when the capsule position is unknown.
	Distance float64
}

// Controller applies gesture transitions and pointer picks to the
// selection. It owns no capsule data; callers supply the current nearby
// set and user position on every gesture event.
type Controller struct {
	mu        sync.Mutex
	selected  *Selection
	lastState gesture.State

	changed func(core.SelectionEvent)
	cleared func()
}

// NewController creates a controller. changed fires on every new selection,
// cleared fires when a selection is dropped. Either callback may be nil.
func NewController(changed func(core.SelectionEvent), cleared func()) *Controller {
	return &Controller{changed: changed, cleared: cleared}
}

// Selected returns the current selection, or nil when nothing is selected.
func (c *Controller) Selected() *Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return nil
	}
	sel := *c.selected
	return &sel
}

// OnGesture applies a classified gesture state. Open with no current
// selection selects the nearest nearby capsule; Closed clears any
// selection. Repeated states are idempotent: a second Open changes
// nothing even if a closer capsule has since appeared, and a second
// Closed is a no-op.
func (c *Controller) OnGesture(state gesture.State, user geo.Coordinate, nearby []core.Capsule) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.lastState
	c.lastState = state
	if state == prev {
		return
	}

	switch state {
	case gesture.Open:
		if c.selected != nil {
			return
		}
		c.selectNearestLocked(user, nearby)
	case gesture.Closed:
		c.clearLocked()
	}
}

// PointerPick selects a capsule directly, replacing any current selection.
// It bypasses the gesture path entirely; the pick wins regardless of
// distance or current state. distance may be -1 when unknown.
func (c *Controller) PointerPick(capsuleID string, distance float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selected != nil && c.selected.CapsuleID == capsuleID {
		return
	}
	c.selected = &Selection{CapsuleID: capsuleID, Source: "pointer", Distance: distance}
	if c.changed != nil {
		c.changed(core.SelectionEvent{
			Time:      time.Now(),
			CapsuleID: capsuleID,
			Source:    "pointer",
			Distance:  distance,
		})
	}
}

// Reset drops the selection and forgets the last gesture state. Called on
// session teardown so a new session starts from a clean slate.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastState = gesture.None
	c.clearLocked()
}

// selectNearestLocked picks the closest capsule from the nearby set.
// Ties go to the earlier entry, which preserves first-seen ordering as
// long as the caller keeps the set in discovery order.
func (c *Controller) selectNearestLocked(user geo.Coordinate, nearby []core.Capsule) {
	if len(nearby) == 0 {
		return
	}

	best := 0
	bestDist := geo.Distance(user, nearby[0].Position)
	for i := 1; i < len(nearby); i++ {
		if d := geo.Distance(user, nearby[i].Position); d < bestDist {
			best = i
			bestDist = d
		}
	}

	picked := nearby[best]
	c.selected = &Selection{CapsuleID: picked.ID, Source: "gesture", Distance: bestDist}
	if c.changed != nil {
		c.changed(core.SelectionEvent{
			Time:      time.Now(),
			CapsuleID: picked.ID,
			Source:    "gesture",
			Distance:  bestDist,
		})
	}
}

func (c *Controller) clearLocked() {
	if c.selected == nil {
		return
	}
	c.selected = nil
	if c.cleared != nil {
		c.cleared()
	}
}
