// Package memory stores session data in memory and exports a JSON recap
// on session end.
package memory

import (
	"sync"

	"github.com/geostash/engine/internal/config"
	"github.com/geostash/engine/pkg/core"
)

// Backend stores session data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	session *core.SessionRecord

	// capsules in first-seen order; index maps capsule ID to slice position
	capsules []core.Capsule
	index    map[string]int

	scanEvents      []core.ScanEvent
	selectionEvents []core.SelectionEvent

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:   cfg,
		index: make(map[string]int),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session
func (b *Backend) StartSession(rec *core.SessionRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = rec

	// Reset all collections
	b.capsules = nil
	b.index = make(map[string]int)
	b.scanEvents = nil
	b.selectionEvents = nil

	return nil
}

// EndSession finalizes and exports the session data
func (b *Backend) EndSession(rec core.SessionRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = &rec
	return b.exportJSON()
}

// UpsertCapsules merges a capsule snapshot. Known capsules are updated in
// place so first-seen ordering is stable across syncs; capsules absent
// from the snapshot are removed.
func (b *Backend) UpsertCapsules(capsules []core.Capsule) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	present := make(map[string]bool, len(capsules))
	for _, c := range capsules {
		present[c.ID] = true
		if i, ok := b.index[c.ID]; ok {
			b.capsules[i] = c
			continue
		}
		b.index[c.ID] = len(b.capsules)
		b.capsules = append(b.capsules, c)
	}

	// Drop capsules no longer in the snapshot, preserving order.
	kept := b.capsules[:0]
	for _, c := range b.capsules {
		if present[c.ID] {
			kept = append(kept, c)
		}
	}
	b.capsules = kept
	b.index = make(map[string]int, len(b.capsules))
	for i, c := range b.capsules {
		b.index[c.ID] = i
	}

	return nil
}

// Capsules returns the current capsule set in first-seen order
func (b *Backend) Capsules() ([]core.Capsule, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.Capsule, len(b.capsules))
	copy(out, b.capsules)
	return out, nil
}

// GetCapsule looks up a capsule by ID
func (b *Backend) GetCapsule(id string) (core.Capsule, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if i, ok := b.index[id]; ok {
		return b.capsules[i], true
	}
	return core.Capsule{}, false
}

// RecordScanEvent records a scan event
func (b *Backend) RecordScanEvent(e *core.ScanEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scanEvents = append(b.scanEvents, *e)
	return nil
}

// RecordSelectionEvent records a selection event
func (b *Backend) RecordSelectionEvent(e *core.SelectionEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selectionEvents = append(b.selectionEvents, *e)
	return nil
}

// LastExportPath returns the path of the most recent session recap file
func (b *Backend) LastExportPath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
