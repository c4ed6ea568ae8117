package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&EngineInfo{},
	&Session{},
	&Capsule{},
	&ScanEvent{},
	&SelectionEvent{},
	&EnginePerformance{},
}

var DatabaseModelsSQLite = []interface{}{
	&EngineInfo{},
	&Session{},
	&Capsule{},
	&ScanEvent{},
	&SelectionEvent{},
	&EnginePerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// EngineInfo contains identifying information about this engine instance
type EngineInfo struct {
	gorm.Model
	InstanceName  string `json:"instanceName" gorm:"size:127"`
	BridgeVersion string `json:"bridgeVersion" gorm:"size:64"`
	EngineVersion string `json:"engineVersion" gorm:"size:64"`
}

func (*EngineInfo) TableName() string {
	return "engine_infos"
}

// EnginePerformance is the model for per-tick engine performance metrics
type EnginePerformance struct {
	Time                time.Time     `json:"time" gorm:"type:timestamptz;index:idx_time"`
	SessionID           uint          `json:"sessionId" gorm:"index:idx_engineperformance_session_id"`
	Session             Session       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	BufferLengths       BufferLengths `json:"bufferLengths" gorm:"embedded;embeddedPrefix:buffer_"`
	TickDurationMs      float32       `json:"tickDurationMs"`
	LastWriteDurationMs float32       `json:"lastWriteDurationMs"`
}

func (*EnginePerformance) TableName() string {
	return "engine_performances"
}

// BufferLengths is the model for pending write queue lengths
type BufferLengths struct {
	ScanEvents      uint16 `json:"scanEvents"`
	SelectionEvents uint16 `json:"selectionEvents"`
	Capsules        uint16 `json:"capsules"`
}

////////////////////////
// SESSION MODELS
////////////////////////

// Session is the main model for one AR interaction session
type Session struct {
	gorm.Model
	StartTime     time.Time `json:"startTime" gorm:"type:timestamptz;index:idx_session_start"`
	EndTime       time.Time `json:"endTime" gorm:"type:timestamptz"`
	BridgeVersion string    `json:"bridgeVersion" gorm:"size:64"`
	EngineVersion string    `json:"engineVersion" gorm:"size:64"`
	FrameCount    uint      `json:"frameCount"`
	ScanCount     uint      `json:"scanCount"`

	ScanEvents      []ScanEvent
	SelectionEvents []SelectionEvent
}

func (*Session) TableName() string {
	return "sessions"
}

// Capsule is an anchored content capsule synced from the capsule store
type Capsule struct {
	CapsuleID string         `json:"capsuleId" gorm:"primaryKey;size:64"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"deletedAt" gorm:"index"`

	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Location  geom.Point `json:"location"` // planar EPSG:3857 projection of lat/lon

	AuthoredAt time.Time `json:"authoredAt" gorm:"type:timestamptz"`
	Message    string    `json:"message" gorm:"size:2000"`
	HasImage   bool      `json:"hasImage" gorm:"default:false"`
	HasVideo   bool      `json:"hasVideo" gorm:"default:false"`
	HasAudio   bool      `json:"hasAudio" gorm:"default:false"`
}

func (*Capsule) TableName() string {
	return "capsules"
}

// ScanEvent records one completed or cancelled radar scan
//
// Bridge command: :SCAN:TRIGGER:
type ScanEvent struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time" gorm:"type:timestamptz;"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_scanevent_session_id"`
	Session   Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`

	UserPosition geom.Point     `json:"userPosition"` // planar EPSG:3857 user location at scan time
	NearbyCount  uint16         `json:"nearbyCount"`
	CapsuleIDs   datatypes.JSON `json:"capsuleIds" gorm:"type:jsonb;default:'[]'"` // detected capsule IDs as JSON array
	Cancelled    bool           `json:"cancelled" gorm:"default:false"`
}

func (*ScanEvent) TableName() string {
	return "scan_events"
}

// SelectionEvent records a capsule selection
//
// Bridge commands: :FRAME:HAND: (gesture path), :POINTER:PICK:
type SelectionEvent struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time" gorm:"type:timestamptz;"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_selectionevent_session_id"`
	Session   Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`

	CapsuleID string  `json:"capsuleId" gorm:"size:64;index:idx_selectionevent_capsule_id"`
	Source    string  `json:"source" gorm:"size:16"` // gesture or pointer
	Distance  float64 `json:"distance"`              // user-to-capsule meters at selection, -1 if unknown
}

func (*SelectionEvent) TableName() string {
	return "selection_events"
}
