// Package proximity gates capsule content behind a distance threshold.
package proximity

import (
	"github.com/geostash/engine/internal/geo"
	"github.com/geostash/engine/pkg/core"
)

// UnlockRangeMeters is the distance inside which a capsule's content
// becomes readable. The boundary is exclusive: exactly 50 m stays locked.
const UnlockRangeMeters = 50.0

// Unlockable reports whether a capsule at the given distance can be opened.
func Unlockable(distanceMeters float64) bool {
	return distanceMeters < UnlockRangeMeters
}

// Redact strips content fields from a capsule the user is too far from.
// The locked capsule is rebuilt from its LockedView, which carries only
// existence, position and media-type flags.
func Redact(user geo.Coordinate, c core.Capsule) (core.Capsule, bool) {
	if Unlockable(geo.Distance(user, c.Position)) {
		return c, true
	}
	v := c.Locked()
	return core.Capsule{
		ID:        v.ID,
		Position:  v.Position,
		CreatedAt: v.CreatedAt,
		HasImage:  v.HasImage,
		HasVideo:  v.HasVideo,
		HasAudio:  v.HasAudio,
	}, false
}
