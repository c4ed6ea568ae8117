package gormstorage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geostash/engine/internal/cache"
	"github.com/geostash/engine/internal/geo"
	"github.com/geostash/engine/internal/logging"
	"github.com/geostash/engine/pkg/core"
)

// newTestBackend creates a Backend with no DB (queue-only mode for unit testing).
func newTestBackend() *Backend {
	return New(Dependencies{
		DB:            nil,
		CapsuleCache:  cache.NewCapsuleCache(),
		LogManager:    logging.NewSlogManager(),
		BridgeVersion: "test-bridge",
		EngineVersion: "test-engine",
	})
}

func TestNew(t *testing.T) {
	b := newTestBackend()
	require.NotNil(t, b)
}

func TestInitClose(t *testing.T) {
	b := newTestBackend()

	err := b.Init()
	require.NoError(t, err)
	require.NotNil(t, b.queues)
	require.NotNil(t, b.stopChan)

	err = b.Close()
	require.NoError(t, err)
}

func TestClose_Idempotent(t *testing.T) {
	b := newTestBackend()
	require.NoError(t, b.Init())

	// Session teardown can close an already-closed backend; the second call
	// must not panic on the stop channel.
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
}

func TestUpsertCapsules_QueuesAndCaches(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	err := b.UpsertCapsules([]core.Capsule{
		{ID: "a", Position: geo.Coordinate{Lat: 48.85, Lon: 2.35}},
		{ID: "b", Position: geo.Coordinate{Lat: 48.86, Lon: 2.36}},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, b.queues.Capsules.Len())

	cached, ok := b.GetCapsule("a")
	require.True(t, ok)
	assert.Equal(t, "a", cached.ID)
}

func TestCapsules_ServedFromCache(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	require.NoError(t, b.UpsertCapsules([]core.Capsule{{ID: "a"}, {ID: "b"}}))
	require.NoError(t, b.UpsertCapsules([]core.Capsule{{ID: "b"}, {ID: "a"}}))

	got, err := b.Capsules()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID, "first-seen order survives re-sync")
	assert.Equal(t, "b", got[1].ID)
}

func TestRecordScanEvent_QueuesToInternalQueue(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	event := &core.ScanEvent{
		Time:        time.Now(),
		UserPos:     geo.Coordinate{Lat: 48.85, Lon: 2.35},
		NearbyCount: 3,
		CapsuleIDs:  []string{"a", "b", "c"},
	}

	err := b.RecordScanEvent(event)
	require.NoError(t, err)
	assert.Equal(t, 1, b.queues.ScanEvents.Len())
}

func TestRecordSelectionEvent_QueuesToInternalQueue(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	event := &core.SelectionEvent{
		Time:      time.Now(),
		CapsuleID: "a",
		Source:    "gesture",
		Distance:  42.5,
	}

	err := b.RecordSelectionEvent(event)
	require.NoError(t, err)
	assert.Equal(t, 1, b.queues.SelectionEvents.Len())
}

func TestStartSession_NoDB_NoError(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	err := b.StartSession(&core.SessionRecord{StartedAt: time.Now()})
	require.NoError(t, err)
	// No DB → session not inserted, but no error
}

func TestEndSession_NoDB_NoError(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	err := b.EndSession(core.SessionRecord{EndedAt: time.Now()})
	require.NoError(t, err)
}

func TestSetSessionID(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	b.SetSessionID(42)
	assert.Equal(t, uint64(42), b.sessionID.Load())
}

func TestQueueLengths(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	require.NoError(t, b.UpsertCapsules([]core.Capsule{{ID: "a"}}))
	require.NoError(t, b.RecordScanEvent(&core.ScanEvent{}))
	require.NoError(t, b.RecordSelectionEvent(&core.SelectionEvent{}))
	require.NoError(t, b.RecordSelectionEvent(&core.SelectionEvent{}))

	lengths := b.QueueLengths()
	assert.Equal(t, uint16(1), lengths.Capsules)
	assert.Equal(t, uint16(1), lengths.ScanEvents)
	assert.Equal(t, uint16(2), lengths.SelectionEvents)
}

func TestGetLastDBWriteDuration(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	assert.Equal(t, time.Duration(0), b.GetLastDBWriteDuration())

	b.lastDBWriteDuration = 100 * time.Millisecond
	assert.Equal(t, 100*time.Millisecond, b.GetLastDBWriteDuration())
}
