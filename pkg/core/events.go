package core

import (
	"time"

	"github.com/geostash/engine/internal/geo"
)

// ScanEvent records one completed radar scan.
type ScanEvent struct {
	Time        time.Time      `json:"time"`
	UserPos     geo.Coordinate `json:"userPos"`
	NearbyCount int            `json:"nearbyCount"`
	CapsuleIDs  []string       `json:"capsuleIds"`
	Cancelled   bool           `json:"cancelled"`
}

// SelectionEvent records a capsule being selected or cleared and the input
// that drove it.
type SelectionEvent struct {
	Time      time.Time `json:"time"`
	CapsuleID string    `json:"capsuleId"` // empty when the selection cleared
	Source    string    `json:"source"`    // "gesture" or "pointer"
	Distance  float64   `json:"distance"`  // meters from the user at selection time
}

// SessionRecord summarizes one interaction session for later review.
type SessionRecord struct {
	StartedAt  time.Time `json:"startedAt"`
	EndedAt    time.Time `json:"endedAt"`
	FrameCount uint      `json:"frameCount"`
	ScanCount  uint      `json:"scanCount"`
}
