package gesture

import "math"

// LandmarkCount is the number of hand landmarks per frame, fixed by the
// perception pipeline's convention.
const LandmarkCount = 21

// Landmark indices within a frame.
const (
	IdxWrist         = 0
	IdxThumbTip      = 4
	IdxIndexTip      = 8
	IdxMiddleKnuckle = 9
	IdxMiddleTip     = 12
	IdxRingTip       = 16
	IdxPinkyTip      = 20
)

// Point3 is a single landmark position, normalized to [0,1] in camera-frame
// space.
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// LandmarkFrame is one perception tick's worth of hand landmarks. The core
// never mutates a frame after receiving it.
type LandmarkFrame []Point3

// Valid reports whether the frame carries the expected landmark count.
// Anything else is treated as "no hand detected" for the tick.
func (f LandmarkFrame) Valid() bool {
	return len(f) == LandmarkCount
}

func dist(a, b Point3) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
