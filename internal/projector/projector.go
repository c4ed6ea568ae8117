// Package projector maps geodesic relationships into the egocentric frame
// used to place anchors in the AR scene.
package projector

import (
	"math"

	"github.com/geostash/engine/internal/geo"
	"github.com/geostash/engine/pkg/core"
)

// Visual distance bounds in engine units. Raw meters are compressed by
// DistanceScale then clamped so both near and far capsules stay inside a
// bounded scene.
const (
	DistanceScale     = 5.0
	MinVisualDistance = 5.0
	MaxVisualDistance = 50.0
)

// Anchor is the egocentric placement of one capsule: a math-convention
// angle (0 = +x axis), a clamped visual distance, and a ground-plane
// position. Elevation (bobbing etc.) belongs to the rendering layer.
type Anchor struct {
	CapsuleID      string  `json:"capsuleId"`
	AngleRadians   float64 `json:"angleRadians"`
	VisualDistance float64 `json:"visualDistance"`
	X              float64 `json:"x"`
	Z              float64 `json:"z"`
}

// VisualDistance compresses a raw distance in meters into the bounded
// scene range [MinVisualDistance, MaxVisualDistance].
func VisualDistance(meters float64) float64 {
	d := meters / DistanceScale
	if d < MinVisualDistance {
		return MinVisualDistance
	}
	if d > MaxVisualDistance {
		return MaxVisualDistance
	}
	return d
}

// Project places one capsule relative to the user. Device heading rotates
// the observer frame elsewhere and is deliberately absent here.
func Project(user geo.Coordinate, c core.Capsule) Anchor {
	bearing := geo.Bearing(user, c.Position)
	dist := geo.Distance(user, c.Position)

	// Compass bearing (0 = north, clockwise) to math angle (0 = +x, ccw).
	angle := (90 - bearing) * math.Pi / 180
	vd := VisualDistance(dist)

	return Anchor{
		CapsuleID:      c.ID,
		AngleRadians:   angle,
		VisualDistance: vd,
		X:              math.Cos(angle) * vd,
		Z:              -math.Sin(angle) * vd,
	}
}

// ProjectAll recomputes the anchor set wholesale. Called whenever the
// capsule set or the user location changes; no incremental patching.
func ProjectAll(user geo.Coordinate, capsules []core.Capsule) []Anchor {
	anchors := make([]Anchor, 0, len(capsules))
	for _, c := range capsules {
		anchors = append(anchors, Project(user, c))
	}
	return anchors
}
