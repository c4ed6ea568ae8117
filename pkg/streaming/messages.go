package streaming

import (
	"encoding/json"

	"github.com/geostash/engine/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeAnchors       = "anchors"
	TypeNearby        = "nearby"
	TypeGestureState  = "gesture_state"
	TypeSelection     = "selection"
	TypeScanStarted   = "scan_started"
	TypeScanCompleted = "scan_completed"
	TypeSensorStatus  = "sensor_status"
)

// Envelope wraps all messages pushed to the front end.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope marshals a payload into an Envelope of the given type.
func NewEnvelope(msgType string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: msgType, Payload: data}, nil
}

// AckMessage is the consumer's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// Anchor is the egocentric placement of one capsule in the AR scene.
type Anchor struct {
	CapsuleID      string  `json:"capsuleId"`
	AngleRadians   float64 `json:"angleRadians"`
	VisualDistance float64 `json:"visualDistance"`
	X              float64 `json:"x"`
	Z              float64 `json:"z"`
}

// AnchorsPayload carries the full anchor set. Replaced wholesale on every
// location or capsule-set change.
type AnchorsPayload struct {
	Anchors []Anchor `json:"anchors"`
}

// NearbyPayload carries the capsules within radar range. Capsule content is
// already redacted for capsules outside unlock range.
type NearbyPayload struct {
	Capsules []core.Capsule `json:"capsules"`
	Count    int            `json:"count"`
}

// GestureStatePayload reports a hand state transition.
type GestureStatePayload struct {
	State string `json:"state"` // "open", "closed" or "none"
}

// SelectionPayload reports the current selection. An empty CapsuleID means
// the selection was cleared.
type SelectionPayload struct {
	CapsuleID string  `json:"capsuleId"`
	Source    string  `json:"source,omitempty"` // "gesture" or "pointer"
	Distance  float64 `json:"distance,omitempty"`
	Unlocked  bool    `json:"unlocked"`
}

// ScanStartedPayload announces an open scan latency window.
type ScanStartedPayload struct {
	LatencyMs int64 `json:"latencyMs"`
}

// ScanCompletedPayload carries the outcome of a finished scan.
type ScanCompletedPayload struct {
	Count      int      `json:"count"`
	CapsuleIDs []string `json:"capsuleIds"`
	Engage     bool     `json:"engage"`
}

// SensorStatusPayload reports geolocation sensor availability. While the
// sensor is unavailable the engine holds the sentinel location.
type SensorStatusPayload struct {
	GeoAvailable bool   `json:"geoAvailable"`
	Message      string `json:"message,omitempty"`
}
