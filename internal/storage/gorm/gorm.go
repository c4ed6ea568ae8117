// Package gormstorage implements the storage.Backend interface using GORM
// with internal queues and a background DB writer goroutine.
package gormstorage

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/geostash/engine/internal/cache"
	"github.com/geostash/engine/internal/logging"
	"github.com/geostash/engine/internal/model"
	"github.com/geostash/engine/internal/model/convert"
	"github.com/geostash/engine/internal/queue"
	"github.com/geostash/engine/pkg/core"
)

// Dependencies holds all dependencies for the GORM storage backend.
// A nil DB puts the backend in queue-only mode: events accumulate in the
// internal queues but nothing is written.
type Dependencies struct {
	DB            *gorm.DB
	CapsuleCache  *cache.CapsuleCache
	LogManager    *logging.SlogManager
	BridgeVersion string
	EngineVersion string
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Capsules        *queue.Queue[model.Capsule]
	ScanEvents      *queue.Queue[model.ScanEvent]
	SelectionEvents *queue.Queue[model.SelectionEvent]
}

func newQueues() *queues {
	return &queues{
		Capsules:        queue.New[model.Capsule](),
		ScanEvents:      queue.New[model.ScanEvent](),
		SelectionEvents: queue.New[model.SelectionEvent](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps                Dependencies
	queues              *queues
	sessionID           atomic.Uint64
	stopChan            chan struct{}
	closeOnce           sync.Once
	dbReady             bool
	lastDBWriteDuration time.Duration
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		deps: deps,
	}
}

// Init creates internal queues, runs schema migration, and starts the DB
// writer goroutine. With no DB injected the backend stays in queue-only mode.
func (b *Backend) Init() error {
	b.queues = newQueues()
	b.stopChan = make(chan struct{})

	if b.deps.DB != nil {
		if err := b.setupDB(); err != nil {
			return fmt.Errorf("failed to setup DB: %w", err)
		}
		b.dbReady = true
	}

	b.startDBWriter()
	return nil
}

// setupDB migrates tables and creates the default engine info row if it doesn't exist.
func (b *Backend) setupDB() error {
	db := b.deps.DB
	log := b.deps.LogManager

	if !db.Migrator().HasTable(&model.EngineInfo{}) {
		if err := db.AutoMigrate(&model.EngineInfo{}); err != nil {
			log.WriteLog("setupDB", fmt.Sprintf("Failed to create engine_infos table: %s", err), "ERROR")
			return fmt.Errorf("failed to auto-migrate EngineInfo: %w", err)
		}
		if err := db.Create(&model.EngineInfo{
			InstanceName:  "geostash",
			BridgeVersion: b.deps.BridgeVersion,
			EngineVersion: b.deps.EngineVersion,
		}).Error; err != nil {
			return fmt.Errorf("failed to create engine_info entry: %w", err)
		}
	}

	if db.Name() == "postgres" {
		if err := db.Exec(`CREATE Extension IF NOT EXISTS postgis;`).Error; err != nil {
			return fmt.Errorf("failed to create PostGIS Extension: %w", err)
		}
		log.WriteLog("setupDB", "PostGIS Extension created", "INFO")
	}

	log.WriteLog("setupDB", "Migrating schema", "INFO")
	models := model.DatabaseModels
	if db.Name() != "postgres" {
		models = model.DatabaseModelsSQLite
	}
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.WriteLog("setupDB", "Database setup complete", "INFO")
	return nil
}

// Close stops the DB writer goroutine. Safe to call more than once; the
// session teardown path may run on top of an explicit shutdown.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		if b.stopChan != nil {
			close(b.stopChan)
		}
	})
	return nil
}

// StartSession inserts the session row and stores its DB-assigned ID for
// the writer goroutine.
func (b *Backend) StartSession(rec *core.SessionRecord) error {
	if b.deps.DB == nil {
		return nil
	}

	gormSession := model.Session{
		StartTime:     rec.StartedAt,
		BridgeVersion: b.deps.BridgeVersion,
		EngineVersion: b.deps.EngineVersion,
	}
	if err := b.deps.DB.Create(&gormSession).Error; err != nil {
		return fmt.Errorf("failed to insert new session: %w", err)
	}

	b.sessionID.Store(uint64(gormSession.ID))
	return nil
}

// SetSessionID sets the current session ID for the DB writer (used by CLI tools).
func (b *Backend) SetSessionID(id uint) {
	b.sessionID.Store(uint64(id))
}

// EndSession finalizes the session row with its end time and counters.
func (b *Backend) EndSession(rec core.SessionRecord) error {
	if b.deps.DB == nil {
		return nil
	}

	sessionID := uint(b.sessionID.Load())
	if sessionID == 0 {
		return nil
	}

	err := b.deps.DB.Model(&model.Session{}).Where("id = ?", sessionID).Updates(map[string]interface{}{
		"end_time":    rec.EndedAt,
		"frame_count": rec.FrameCount,
		"scan_count":  rec.ScanCount,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to finalize session: %w", err)
	}
	return nil
}

// UpsertCapsules refreshes the capsule cache and queues the snapshot for
// a batched DB upsert.
func (b *Backend) UpsertCapsules(capsules []core.Capsule) error {
	b.deps.CapsuleCache.ReplaceAll(capsules)

	gormObjs := make([]model.Capsule, 0, len(capsules))
	for _, c := range capsules {
		gormObjs = append(gormObjs, convert.CoreToCapsule(c))
	}
	b.queues.Capsules.Push(gormObjs...)
	return nil
}

// Capsules returns the current capsule set from the cache in first-seen order.
// The hot path never reads the database.
func (b *Backend) Capsules() ([]core.Capsule, error) {
	return b.deps.CapsuleCache.All(), nil
}

// GetCapsule looks up a capsule in the cache by ID.
func (b *Backend) GetCapsule(id string) (core.Capsule, bool) {
	return b.deps.CapsuleCache.Get(id)
}

// RecordScanEvent converts a core scan event to GORM and pushes to the write queue.
func (b *Backend) RecordScanEvent(e *core.ScanEvent) error {
	gormObj := convert.CoreToScanEvent(*e, 0)
	b.queues.ScanEvents.Push(gormObj)
	return nil
}

// RecordSelectionEvent converts a core selection event to GORM and pushes to the write queue.
func (b *Backend) RecordSelectionEvent(e *core.SelectionEvent) error {
	gormObj := convert.CoreToSelectionEvent(*e, 0)
	b.queues.SelectionEvents.Push(gormObj)
	return nil
}

// QueueLengths reports pending write queue sizes for performance monitoring.
func (b *Backend) QueueLengths() model.BufferLengths {
	if b.queues == nil {
		return model.BufferLengths{}
	}
	return model.BufferLengths{
		Capsules:        uint16(b.queues.Capsules.Len()),
		ScanEvents:      uint16(b.queues.ScanEvents.Len()),
		SelectionEvents: uint16(b.queues.SelectionEvents.Len()),
	}
}

// GetLastDBWriteDuration returns the duration of the most recent write cycle.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	return b.lastDBWriteDuration
}

// DB exposes the underlying GORM handle for monitoring, nil in queue-only mode.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// SessionID returns the database ID of the active session, 0 when none.
func (b *Backend) SessionID() uint {
	return uint(b.sessionID.Load())
}

// writeQueue writes all items from a queue to the database in a transaction.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log func(string, string, string), prepare func([]T), conflict *clause.OnConflict) {
	if q.Empty() {
		return
	}

	tx := db.Begin()
	items := q.GetAndEmpty()
	if prepare != nil {
		prepare(items)
	}
	if conflict != nil {
		tx = tx.Clauses(*conflict)
	}
	if err := tx.Create(&items).Error; err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error creating %s: %v", name, err), "ERROR")
		tx.Rollback()
		q.Push(items...)
		return
	}

	tx.Commit()
}

// startDBWriter starts the background goroutine that periodically drains queues into the DB.
func (b *Backend) startDBWriter() {
	log := b.deps.LogManager.WriteLog

	go func() {
		for {
			select {
			case <-b.stopChan:
				return
			default:
			}

			if !b.dbReady {
				time.Sleep(1 * time.Second)
				continue
			}

			// Read sessionID once per write cycle
			sessionID := uint(b.sessionID.Load())

			stampScanEvents := func(items []model.ScanEvent) {
				for i := range items {
					items[i].SessionID = sessionID
				}
			}
			stampSelectionEvents := func(items []model.SelectionEvent) {
				for i := range items {
					items[i].SessionID = sessionID
				}
			}

			start := time.Now()

			// Capsules are a shared snapshot, not session-scoped; repeated
			// syncs update the existing rows in place.
			writeQueue(b.deps.DB, b.queues.Capsules, "capsules", log, nil, &clause.OnConflict{
				Columns:   []clause.Column{{Name: "capsule_id"}},
				UpdateAll: true,
			})

			writeQueue(b.deps.DB, b.queues.ScanEvents, "scan events", log, stampScanEvents, nil)
			writeQueue(b.deps.DB, b.queues.SelectionEvents, "selection events", log, stampSelectionEvents, nil)

			b.lastDBWriteDuration = time.Since(start)

			time.Sleep(2 * time.Second)
		}
	}()
}
