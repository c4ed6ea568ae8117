// Package storage defines the persistence boundary for sessions, capsule
// snapshots and interaction events.
package storage

import "github.com/geostash/engine/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(rec *core.SessionRecord) error
	EndSession(rec core.SessionRecord) error

	// Capsule snapshot, replaced wholesale on every sync
	UpsertCapsules(capsules []core.Capsule) error
	Capsules() ([]core.Capsule, error)

	// Event recording
	RecordScanEvent(e *core.ScanEvent) error
	RecordSelectionEvent(e *core.SelectionEvent) error
}

// Exportable is an optional interface for storage backends that produce a
// session recap file on EndSession.
type Exportable interface {
	LastExportPath() string
}
