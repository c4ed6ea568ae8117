// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/geostash/engine/internal/geo"
	"github.com/geostash/engine/internal/model"
	"github.com/geostash/engine/pkg/core"
)

// idsToJSON converts a []string to datatypes.JSON for DB storage.
func idsToJSON(ids []string) datatypes.JSON {
	if len(ids) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(ids)
	return datatypes.JSON(data)
}

// CoreToCapsule converts a core.Capsule to a GORM model.Capsule.
// The planar Location column is derived from the lat/lon pair.
func CoreToCapsule(c core.Capsule) model.Capsule {
	return model.Capsule{
		CapsuleID:  c.ID,
		Latitude:   c.Position.Lat,
		Longitude:  c.Position.Lon,
		Location:   geo.WebMercator(c.Position),
		AuthoredAt: c.CreatedAt,
		Message:    c.Message,
		HasImage:   c.HasImage,
		HasVideo:   c.HasVideo,
		HasAudio:   c.HasAudio,
	}
}

// CapsuleToCore converts a GORM model.Capsule to a core.Capsule.
func CapsuleToCore(c model.Capsule) core.Capsule {
	return core.Capsule{
		ID:        c.CapsuleID,
		Position:  geo.Coordinate{Lat: c.Latitude, Lon: c.Longitude},
		CreatedAt: c.AuthoredAt,
		Message:   c.Message,
		HasImage:  c.HasImage,
		HasVideo:  c.HasVideo,
		HasAudio:  c.HasAudio,
	}
}

// CoreToScanEvent converts a core.ScanEvent to a GORM model.ScanEvent.
func CoreToScanEvent(e core.ScanEvent, sessionID uint) model.ScanEvent {
	return model.ScanEvent{
		Time:         e.Time,
		SessionID:    sessionID,
		UserPosition: geo.WebMercator(e.UserPos),
		NearbyCount:  uint16(e.NearbyCount),
		CapsuleIDs:   idsToJSON(e.CapsuleIDs),
		Cancelled:    e.Cancelled,
	}
}

// CoreToSelectionEvent converts a core.SelectionEvent to a GORM model.SelectionEvent.
func CoreToSelectionEvent(e core.SelectionEvent, sessionID uint) model.SelectionEvent {
	return model.SelectionEvent{
		Time:      e.Time,
		SessionID: sessionID,
		CapsuleID: e.CapsuleID,
		Source:    e.Source,
		Distance:  e.Distance,
	}
}
