package parser

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/geostash/engine/internal/geo"
	"github.com/geostash/engine/internal/util"
	"github.com/geostash/engine/pkg/core"
)

// capsuleJSON is the wire shape of a capsule in a sync snapshot.
type capsuleJSON struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	CreatedAt string  `json:"createdAt"`
	Message   string  `json:"message"`
	HasImage  bool    `json:"hasImage"`
	HasVideo  bool    `json:"hasVideo"`
	HasAudio  bool    `json:"hasAudio"`
}

// ParseCapsuleSync parses a capsule snapshot. data[0] is a JSON array of
// capsule objects. Entries with an empty id or unparseable timestamp are
// skipped with a warning; one bad capsule must not drop the snapshot.
func (p *Parser) ParseCapsuleSync(data []string) ([]core.Capsule, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("capsule sync: no arguments")
	}

	// The payload is JSON, where "" is an empty string value. Only undo
	// transport quoting when the arg actually arrived quote-wrapped.
	payload := util.UnwrapArg(data[0])

	var raw []capsuleJSON
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("error unmarshalling capsule snapshot: %w", err)
	}

	capsules := make([]core.Capsule, 0, len(raw))
	for _, rc := range raw {
		if rc.ID == "" {
			p.logger.Warn("Skipping capsule without id")
			continue
		}

		createdAt := time.Time{}
		if rc.CreatedAt != "" {
			var err error
			createdAt, err = time.Parse(time.RFC3339, rc.CreatedAt)
			if err != nil {
				p.logger.Warn("Skipping capsule with bad createdAt",
					"capsule", rc.ID, "error", err)
				continue
			}
		}

		capsules = append(capsules, core.Capsule{
			ID:        rc.ID,
			Position:  geo.Coordinate{Lat: rc.Latitude, Lon: rc.Longitude},
			CreatedAt: createdAt,
			Message:   rc.Message,
			HasImage:  rc.HasImage,
			HasVideo:  rc.HasVideo,
			HasAudio:  rc.HasAudio,
		})
	}

	p.logger.Debug("Parsed capsule snapshot", "count", len(capsules))

	return capsules, nil
}
