// pkg/core/capsule.go
package core

import (
	"time"

	"github.com/geostash/engine/internal/geo"
)

// Capsule is a virtual note anchored to a real-world coordinate.
// The engine core only reads ID, Position and the media flags; content
// fields stay with the store and are withheld behind LockedView until the
// proximity gate opens.
type Capsule struct {
	ID        string         `json:"id"`
	Position  geo.Coordinate `json:"position"`
	CreatedAt time.Time      `json:"createdAt"`
	Message   string         `json:"message,omitempty"`
	HasImage  bool           `json:"hasImage"`
	HasVideo  bool           `json:"hasVideo"`
	HasAudio  bool           `json:"hasAudio"`
}

// LockedView is the shape a capsule takes while outside unlock range:
// existence, position and media-type flags only, never content.
type LockedView struct {
	ID        string         `json:"id"`
	Position  geo.Coordinate `json:"position"`
	CreatedAt time.Time      `json:"createdAt"`
	HasImage  bool           `json:"hasImage"`
	HasVideo  bool           `json:"hasVideo"`
	HasAudio  bool           `json:"hasAudio"`
}

// Locked returns the content-free view of the capsule.
func (c Capsule) Locked() LockedView {
	return LockedView{
		ID:        c.ID,
		Position:  c.Position,
		CreatedAt: c.CreatedAt,
		HasImage:  c.HasImage,
		HasVideo:  c.HasVideo,
		HasAudio:  c.HasAudio,
	}
}
