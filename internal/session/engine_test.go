package session

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/geostash/engine/internal/channel"
	"github.com/geostash/engine/internal/config"
	"github.com/geostash/engine/internal/dispatcher"
	"github.com/geostash/engine/internal/gesture"
	"github.com/geostash/engine/internal/logging"
	"github.com/geostash/engine/internal/parser"
	"github.com/geostash/engine/internal/storage/memory"
	"github.com/geostash/engine/pkg/streaming"
)

func newTestEngine(t *testing.T, latency time.Duration) (*Engine, channel.Channel[streaming.Envelope]) {
	t.Helper()

	lm := logging.NewSlogManager()
	out := channel.NewBuffered[streaming.Envelope](256)

	e := NewEngine(Dependencies{
		Backend:     memory.New(config.MemoryConfig{OutputDir: t.TempDir()}),
		Parser:      parser.NewParser(lm.Logger(), "0.1.0", "0.1.0"),
		LogManager:  lm,
		Out:         out,
		ScanLatency: latency,
	})
	if err := e.Start(); err != nil {
		t.Fatalf("failed to start engine: %v", err)
	}
	return e, out
}

func drain(out channel.Channel[streaming.Envelope]) []streaming.Envelope {
	var envs []streaming.Envelope
	for {
		select {
		case env := <-out.Receive():
			envs = append(envs, env)
		default:
			return envs
		}
	}
}

func envelopesOfType(envs []streaming.Envelope, msgType string) []streaming.Envelope {
	var matched []streaming.Envelope
	for _, env := range envs {
		if env.Type == msgType {
			matched = append(matched, env)
		}
	}
	return matched
}

// frameArgs builds a 63-value landmark argument list with every non-anchor
// landmark at tip. Wrist sits at the origin and the middle knuckle 0.1
// above it, so the palm length is 0.1.
func frameArgs(tipX, tipY, tipZ float64) []string {
	args := make([]string, 0, gesture.LandmarkCount*3)
	for i := 0; i < gesture.LandmarkCount; i++ {
		x, y, z := tipX, tipY, tipZ
		switch i {
		case gesture.IdxWrist:
			x, y, z = 0, 0, 0
		case gesture.IdxMiddleKnuckle:
			x, y, z = 0, 0.1, 0
		}
		args = append(args,
			fmt.Sprintf("%f", x), fmt.Sprintf("%f", y), fmt.Sprintf("%f", z))
	}
	return args
}

func openPalmArgs() []string { return frameArgs(0.5, 0.5, 0) }
func fistArgs() []string     { return frameArgs(0.05, 0, 0) }

// capsuleSyncArgs builds a :CAPSULE:SYNC: payload from (id, lat, lon, message)
// tuples.
func capsuleSyncArgs(t *testing.T, capsules []map[string]any) []string {
	t.Helper()
	raw, err := json.Marshal(capsules)
	if err != nil {
		t.Fatalf("failed to marshal capsules: %v", err)
	}
	return []string{string(raw)}
}

func TestStartStop_SessionLifecycle(t *testing.T) {
	e, _ := newTestEngine(t, time.Second)

	if !e.Context().Active() {
		t.Fatal("expected session to be active after Start")
	}

	e.Stop()
	if e.Context().Active() {
		t.Error("expected session to be inactive after Stop")
	}

	// Stop is idempotent
	e.Stop()
}

func TestHandlePosition_PublishesSensorStatusOnce(t *testing.T) {
	e, out := newTestEngine(t, time.Second)

	if _, err := e.handlePosition(dispatcher.Event{Args: []string{"52.52,13.405"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	envs := drain(out)
	if got := len(envelopesOfType(envs, streaming.TypeSensorStatus)); got != 1 {
		t.Errorf("expected 1 sensor status envelope, got %d", got)
	}

	if _, err := e.handlePosition(dispatcher.Event{Args: []string{"52.521,13.406"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	envs = drain(out)
	if got := len(envelopesOfType(envs, streaming.TypeSensorStatus)); got != 0 {
		t.Errorf("expected no sensor status on repeat fix, got %d", got)
	}

	if !e.GeoAvailable() {
		t.Error("expected geo to be available")
	}
}

func TestHandlePosition_Malformed(t *testing.T) {
	e, _ := newTestEngine(t, time.Second)

	if _, err := e.handlePosition(dispatcher.Event{Args: []string{"not-a-coordinate"}}); err == nil {
		t.Error("expected an error for a malformed fix")
	}
	if e.GeoAvailable() {
		t.Error("a malformed fix must not mark the sensor available")
	}
}

func TestHandleGeoError_ResetsToSentinel(t *testing.T) {
	e, out := newTestEngine(t, time.Second)

	if _, err := e.handlePosition(dispatcher.Event{Args: []string{"52.52,13.405"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	drain(out)

	if _, err := e.handleGeoError(dispatcher.Event{Args: []string{"permission denied"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if e.GeoAvailable() {
		t.Error("expected geo to be unavailable")
	}
	if pos := e.UserPosition(); pos.Lat != 0 || pos.Lon != 0 {
		t.Errorf("expected sentinel position, got %+v", pos)
	}

	statuses := envelopesOfType(drain(out), streaming.TypeSensorStatus)
	if len(statuses) != 1 {
		t.Fatalf("expected 1 sensor status envelope, got %d", len(statuses))
	}
	var payload streaming.SensorStatusPayload
	if err := json.Unmarshal(statuses[0].Payload, &payload); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if payload.GeoAvailable {
		t.Error("expected geoAvailable false")
	}
	if payload.Message != "permission denied" {
		t.Errorf("expected sensor message to carry the error, got %q", payload.Message)
	}
}

func TestCapsuleSync_RedactsLockedCapsules(t *testing.T) {
	e, out := newTestEngine(t, time.Second)

	if _, err := e.handlePosition(dispatcher.Event{Args: []string{"52.52,13.405"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	drain(out)

	// near is ~11 m away, locked ~445 m, far ~2.2 km (outside radar range)
	args := capsuleSyncArgs(t, []map[string]any{
		{"id": "near", "latitude": 52.5201, "longitude": 13.405, "message": "open me"},
		{"id": "locked", "latitude": 52.524, "longitude": 13.405, "message": "too far"},
		{"id": "far", "latitude": 52.54, "longitude": 13.405, "message": "unreachable"},
	})
	if _, err := e.handleCapsuleSync(dispatcher.Event{Args: args}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	envs := drain(out)

	nearbyEnvs := envelopesOfType(envs, streaming.TypeNearby)
	if len(nearbyEnvs) != 1 {
		t.Fatalf("expected 1 nearby envelope, got %d", len(nearbyEnvs))
	}
	var nearby streaming.NearbyPayload
	if err := json.Unmarshal(nearbyEnvs[0].Payload, &nearby); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if nearby.Count != 2 {
		t.Fatalf("expected 2 nearby capsules, got %d", nearby.Count)
	}
	for _, c := range nearby.Capsules {
		switch c.ID {
		case "near":
			if c.Message != "open me" {
				t.Errorf("expected unlocked capsule to keep its message, got %q", c.Message)
			}
		case "locked":
			if c.Message != "" {
				t.Errorf("expected locked capsule message to be stripped, got %q", c.Message)
			}
		default:
			t.Errorf("unexpected capsule %q in nearby set", c.ID)
		}
	}

	anchorEnvs := envelopesOfType(envs, streaming.TypeAnchors)
	if len(anchorEnvs) != 1 {
		t.Fatalf("expected 1 anchors envelope, got %d", len(anchorEnvs))
	}
	var anchors streaming.AnchorsPayload
	if err := json.Unmarshal(anchorEnvs[0].Payload, &anchors); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if len(anchors.Anchors) != 2 {
		t.Errorf("expected 2 anchors, got %d", len(anchors.Anchors))
	}
}

func TestHandFrame_OpenSelectsNearest(t *testing.T) {
	e, out := newTestEngine(t, time.Second)

	if _, err := e.handlePosition(dispatcher.Event{Args: []string{"52.52,13.405"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	args := capsuleSyncArgs(t, []map[string]any{
		{"id": "farther", "latitude": 52.523, "longitude": 13.405},
		{"id": "nearest", "latitude": 52.5201, "longitude": 13.405},
	})
	if _, err := e.handleCapsuleSync(dispatcher.Event{Args: args}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	drain(out)

	if _, err := e.handleHandFrame(dispatcher.Event{Args: openPalmArgs()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sel := e.Selected()
	if sel == nil {
		t.Fatal("expected a selection after open palm")
	}
	if sel.CapsuleID != "nearest" {
		t.Errorf("expected nearest capsule selected, got %q", sel.CapsuleID)
	}
	if sel.Source != "gesture" {
		t.Errorf("expected gesture source, got %q", sel.Source)
	}

	envs := drain(out)
	if got := len(envelopesOfType(envs, streaming.TypeGestureState)); got != 1 {
		t.Errorf("expected 1 gesture state envelope, got %d", got)
	}
	if got := len(envelopesOfType(envs, streaming.TypeSelection)); got != 1 {
		t.Errorf("expected 1 selection envelope, got %d", got)
	}

	// a second open frame changes nothing and publishes nothing
	if _, err := e.handleHandFrame(dispatcher.Event{Args: openPalmArgs()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	envs = drain(out)
	if got := len(envelopesOfType(envs, streaming.TypeGestureState)); got != 0 {
		t.Errorf("expected no gesture state on repeat open, got %d", got)
	}
	if sel := e.Selected(); sel == nil || sel.CapsuleID != "nearest" {
		t.Error("expected selection to be unchanged on repeat open")
	}
}

func TestHandFrame_ClosedClearsSelection(t *testing.T) {
	e, out := newTestEngine(t, time.Second)

	if _, err := e.handlePosition(dispatcher.Event{Args: []string{"52.52,13.405"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	args := capsuleSyncArgs(t, []map[string]any{
		{"id": "cap-1", "latitude": 52.5201, "longitude": 13.405},
	})
	if _, err := e.handleCapsuleSync(dispatcher.Event{Args: args}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := e.handleHandFrame(dispatcher.Event{Args: openPalmArgs()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Selected() == nil {
		t.Fatal("expected a selection")
	}
	drain(out)

	if _, err := e.handleHandFrame(dispatcher.Event{Args: fistArgs()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Selected() != nil {
		t.Error("expected selection to be cleared by fist")
	}

	envs := drain(out)
	selections := envelopesOfType(envs, streaming.TypeSelection)
	if len(selections) != 1 {
		t.Fatalf("expected 1 selection envelope, got %d", len(selections))
	}
	var payload streaming.SelectionPayload
	if err := json.Unmarshal(selections[0].Payload, &payload); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if payload.CapsuleID != "" {
		t.Errorf("expected an empty capsule id on clear, got %q", payload.CapsuleID)
	}
}

func TestHandFrame_MalformedIsNoHand(t *testing.T) {
	e, _ := newTestEngine(t, time.Second)

	if _, err := e.handleHandFrame(dispatcher.Event{Args: []string{"1.0", "2.0"}}); err != nil {
		t.Errorf("a malformed frame must not fail the feed, got %v", err)
	}
	if got := e.Context().Record().FrameCount; got != 1 {
		t.Errorf("expected malformed frame to still count, got %d", got)
	}
}

func TestHandleNoHand_DropsGestureState(t *testing.T) {
	e, out := newTestEngine(t, time.Second)

	if _, err := e.handlePosition(dispatcher.Event{Args: []string{"52.52,13.405"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	args := capsuleSyncArgs(t, []map[string]any{
		{"id": "cap-1", "latitude": 52.5201, "longitude": 13.405},
	})
	if _, err := e.handleCapsuleSync(dispatcher.Event{Args: args}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.handleHandFrame(dispatcher.Event{Args: openPalmArgs()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	drain(out)

	if _, err := e.handleNoHand(dispatcher.Event{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	envs := envelopesOfType(drain(out), streaming.TypeGestureState)
	if len(envs) != 1 {
		t.Fatalf("expected 1 gesture state envelope, got %d", len(envs))
	}
	var payload streaming.GestureStatePayload
	if err := json.Unmarshal(envs[0].Payload, &payload); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if payload.State != "none" {
		t.Errorf("expected state none, got %q", payload.State)
	}

	// losing the hand does not clear the selection
	if e.Selected() == nil {
		t.Error("expected selection to survive hand loss")
	}
}

func TestHandleHeading(t *testing.T) {
	e, _ := newTestEngine(t, time.Second)

	if _, err := e.handleHeading(dispatcher.Event{Args: []string{"-90"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := e.Heading(); got != 270 {
		t.Errorf("expected heading normalized to 270, got %f", got)
	}

	if _, err := e.handleHeading(dispatcher.Event{Args: []string{"north"}}); err == nil {
		t.Error("expected an error for a non-numeric heading")
	}
}

func TestPointerPick(t *testing.T) {
	e, out := newTestEngine(t, time.Second)

	if _, err := e.handlePosition(dispatcher.Event{Args: []string{"52.52,13.405"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	args := capsuleSyncArgs(t, []map[string]any{
		{"id": "cap-1", "latitude": 52.5201, "longitude": 13.405},
	})
	if _, err := e.handleCapsuleSync(dispatcher.Event{Args: args}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	drain(out)

	if _, err := e.handlePointerPick(dispatcher.Event{Args: []string{"cap-1"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sel := e.Selected()
	if sel == nil || sel.CapsuleID != "cap-1" {
		t.Fatal("expected cap-1 to be selected")
	}
	if sel.Source != "pointer" {
		t.Errorf("expected pointer source, got %q", sel.Source)
	}
	if sel.Distance < 0 {
		t.Errorf("expected a known distance, got %f", sel.Distance)
	}

	// an unknown capsule still gets picked, with distance -1
	if _, err := e.handlePointerPick(dispatcher.Event{Args: []string{"ghost"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sel = e.Selected()
	if sel == nil || sel.CapsuleID != "ghost" {
		t.Fatal("expected ghost to be selected")
	}
	if sel.Distance != -1 {
		t.Errorf("expected distance -1 for an unknown capsule, got %f", sel.Distance)
	}

	if _, err := e.handlePointerPick(dispatcher.Event{Args: nil}); err == nil {
		t.Error("expected an error for a pick without a capsule id")
	}
}

func TestScanTrigger(t *testing.T) {
	e, out := newTestEngine(t, 20*time.Millisecond)

	if _, err := e.handlePosition(dispatcher.Event{Args: []string{"52.52,13.405"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	args := capsuleSyncArgs(t, []map[string]any{
		{"id": "cap-1", "latitude": 52.5201, "longitude": 13.405},
	})
	if _, err := e.handleCapsuleSync(dispatcher.Event{Args: args}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	drain(out)

	if _, err := e.handleScanTrigger(dispatcher.Event{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// a trigger mid-scan is ignored, not an error
	if _, err := e.handleScanTrigger(dispatcher.Event{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for e.scanner.Active() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	envs := drain(out)
	if got := len(envelopesOfType(envs, streaming.TypeScanStarted)); got != 1 {
		t.Errorf("expected 1 scan started envelope, got %d", got)
	}
	completed := envelopesOfType(envs, streaming.TypeScanCompleted)
	if len(completed) != 1 {
		t.Fatalf("expected 1 scan completed envelope, got %d", len(completed))
	}
	var payload streaming.ScanCompletedPayload
	if err := json.Unmarshal(completed[0].Payload, &payload); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if payload.Count != 1 || !payload.Engage {
		t.Errorf("expected an engaging scan with 1 capsule, got %+v", payload)
	}

	if got := e.Context().Record().ScanCount; got != 1 {
		t.Errorf("expected scan count 1, got %d", got)
	}
}

func TestFrameFeed_NoHandAfterHandFrameWins(t *testing.T) {
	e, _ := newTestEngine(t, time.Second)

	d, err := dispatcher.New(e.deps.LogManager.Logger())
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}
	e.RegisterHandlers(d)

	// A hand frame immediately followed by a no-hand signal must settle on
	// None regardless of how the two land in the mailbox.
	if _, err := d.Dispatch(dispatcher.Event{Command: ":FRAME:HAND:", Args: openPalmArgs()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := d.Dispatch(dispatcher.Event{Command: ":FRAME:NONE:"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for e.Gesture() != gesture.None && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := e.Gesture(); got != gesture.None {
		t.Fatalf("gesture = %v, want None after hand loss", got)
	}

	// And stays None once the mailbox is drained.
	time.Sleep(50 * time.Millisecond)
	if got := e.Gesture(); got != gesture.None {
		t.Errorf("gesture = %v, want None to stick", got)
	}
}

func TestHandFrame_ReportsTickDuration(t *testing.T) {
	lm := logging.NewSlogManager()
	out := channel.NewBuffered[streaming.Envelope](256)

	var ticks []time.Duration
	e := NewEngine(Dependencies{
		Backend:     memory.New(config.MemoryConfig{OutputDir: t.TempDir()}),
		Parser:      parser.NewParser(lm.Logger(), "0.1.0", "0.1.0"),
		LogManager:  lm,
		Out:         out,
		ScanLatency: time.Second,
		OnTick:      func(d time.Duration) { ticks = append(ticks, d) },
		TickBudget:  100 * time.Millisecond,
	})
	if err := e.Start(); err != nil {
		t.Fatalf("failed to start engine: %v", err)
	}

	if _, err := e.handleHandFrame(dispatcher.Event{Args: openPalmArgs()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ticks) != 1 {
		t.Fatalf("expected 1 tick report, got %d", len(ticks))
	}
	if ticks[0] < 0 {
		t.Errorf("tick duration = %v, want nonnegative", ticks[0])
	}
}

func TestRegisterHandlers(t *testing.T) {
	e, _ := newTestEngine(t, time.Second)

	d, err := dispatcher.New(e.deps.LogManager.Logger())
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}
	e.RegisterHandlers(d)

	for _, cmd := range []string{
		":GEO:POSITION:", ":GEO:ERROR:", ":FRAME:HAND:", ":FRAME:NONE:",
		":HEADING:", ":POINTER:PICK:", ":SCAN:TRIGGER:", ":CAPSULE:SYNC:",
		":METRIC:",
	} {
		if !d.HasHandler(cmd) {
			t.Errorf("expected a handler for %s", cmd)
		}
	}
}
