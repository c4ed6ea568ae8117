// Package session is the composition root of the interaction engine. It
// owns the gesture classifier, the selection controller, the radar scanner
// and the scene recompute path, and feeds every outcome to storage and to
// the streaming channel the device bridge consumes.
package session

import (
	"sync"
	"time"

	"github.com/geostash/engine/internal/channel"
	"github.com/geostash/engine/internal/geo"
	"github.com/geostash/engine/internal/gesture"
	"github.com/geostash/engine/internal/influx"
	"github.com/geostash/engine/internal/interaction"
	"github.com/geostash/engine/internal/logging"
	"github.com/geostash/engine/internal/parser"
	"github.com/geostash/engine/internal/projector"
	"github.com/geostash/engine/internal/proximity"
	"github.com/geostash/engine/internal/radar"
	"github.com/geostash/engine/internal/storage"
	"github.com/geostash/engine/pkg/core"
	"github.com/geostash/engine/pkg/streaming"
)

// Dependencies holds all dependencies for the session engine
type Dependencies struct {
	Backend    storage.Backend
	Parser     *parser.Parser
	LogManager *logging.SlogManager
	// InfluxManager is optional; when nil :METRIC: commands are dropped.
	InfluxManager *influx.Manager
	// Out is the streaming channel the device bridge consumes envelopes from.
	Out channel.Channel[streaming.Envelope]
	// ScanLatency is the radar scan pacing window.
	ScanLatency time.Duration
	// OnTick, when set, receives the duration of each processed hand frame.
	OnTick func(time.Duration)
	// TickBudget, when positive, logs a warning for frames that take longer.
	TickBudget time.Duration
}

// Engine drives one AR interaction session
type Engine struct {
	deps Dependencies
	ctx  *Context

	classifier *gesture.Classifier
	controller *interaction.Controller
	scanner    *radar.Scanner

	mu           sync.Mutex
	user         geo.Coordinate
	heading      float64
	geoAvailable bool
	lastGesture  gesture.State

	stopOnce sync.Once
}

// NewEngine wires the classifier, controller and scanner together. The
// engine is inert until Start.
func NewEngine(deps Dependencies) *Engine {
	e := &Engine{
		deps: deps,
		ctx:  NewContext(),
	}
	e.classifier = gesture.NewClassifier()
	e.controller = interaction.NewController(e.onSelectionChanged, e.onSelectionCleared)
	e.scanner = radar.New(deps.ScanLatency, e.onScanStarted, e.onScanCompleted)
	return e
}

// Context returns the session context, for status reporting.
func (e *Engine) Context() *Context {
	return e.ctx
}

// Start opens a new session in storage and begins counting.
func (e *Engine) Start() error {
	rec := core.SessionRecord{StartedAt: time.Now()}
	if err := e.deps.Backend.StartSession(&rec); err != nil {
		return err
	}
	e.ctx.Begin(rec.StartedAt)
	e.deps.LogManager.Logger().Info("Session started", "startedAt", rec.StartedAt)
	return nil
}

// Stop tears the session down: cancels any pending scan, resets gesture and
// selection state and closes the session in storage. Idempotent.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.scanner.Cancel()
		e.controller.Reset()

		e.mu.Lock()
		e.classifier.Reset()
		e.lastGesture = gesture.None
		e.mu.Unlock()

		rec := e.ctx.End(time.Now())
		if err := e.deps.Backend.EndSession(rec); err != nil {
			e.deps.LogManager.Logger().Error("Error ending session", "error", err)
		}
		e.deps.LogManager.Logger().Info("Session ended",
			"frames", rec.FrameCount, "scans", rec.ScanCount)
	})
}

// UserPosition returns the current fix, or the sentinel when none is held.
func (e *Engine) UserPosition() geo.Coordinate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.user
}

// Heading returns the last reported compass heading in degrees.
func (e *Engine) Heading() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.heading
}

// GeoAvailable reports whether a geolocation fix is currently held.
func (e *Engine) GeoAvailable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.geoAvailable
}

// Selected returns the current selection, or nil.
func (e *Engine) Selected() *interaction.Selection {
	return e.controller.Selected()
}

// Gesture returns the last published gesture state.
func (e *Engine) Gesture() gesture.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastGesture
}

// observeTick reports how long one perception frame took to process.
func (e *Engine) observeTick(d time.Duration) {
	if e.deps.OnTick != nil {
		e.deps.OnTick(d)
	}
	if e.deps.TickBudget > 0 && d > e.deps.TickBudget {
		e.deps.LogManager.Logger().Warn("Perception tick over budget",
			"duration", d, "budget", e.deps.TickBudget)
	}
}

// nearby returns the unredacted capsules within radar range of the user.
// Storage preserves first-seen order, which the controller's nearest
// tie-break relies on.
func (e *Engine) nearby() []core.Capsule {
	capsules, err := e.deps.Backend.Capsules()
	if err != nil {
		e.deps.LogManager.Logger().Error("Error reading capsules", "error", err)
		return nil
	}
	return radar.Nearby(e.UserPosition(), capsules)
}

// recomputeScene rebuilds anchors and the nearby set wholesale and pushes
// both to the streaming channel. Called on every location or capsule-set
// change.
func (e *Engine) recomputeScene() {
	user := e.UserPosition()
	nearby := e.nearby()

	anchors := projector.ProjectAll(user, nearby)
	out := make([]streaming.Anchor, 0, len(anchors))
	for _, a := range anchors {
		out = append(out, streaming.Anchor{
			CapsuleID:      a.CapsuleID,
			AngleRadians:   a.AngleRadians,
			VisualDistance: a.VisualDistance,
			X:              a.X,
			Z:              a.Z,
		})
	}
	e.publish(streaming.TypeAnchors, streaming.AnchorsPayload{Anchors: out})

	redacted := make([]core.Capsule, 0, len(nearby))
	for _, c := range nearby {
		rc, _ := proximity.Redact(user, c)
		redacted = append(redacted, rc)
	}
	e.publish(streaming.TypeNearby, streaming.NearbyPayload{
		Capsules: redacted,
		Count:    len(redacted),
	})
}

// publishGesture pushes a gesture state only when it differs from the last
// published one, so conflated frame bursts don't spam the consumer.
func (e *Engine) publishGesture(state gesture.State) {
	e.mu.Lock()
	changed := state != e.lastGesture
	e.lastGesture = state
	e.mu.Unlock()

	if changed {
		e.publish(streaming.TypeGestureState, streaming.GestureStatePayload{State: state.String()})
	}
}

func (e *Engine) onSelectionChanged(ev core.SelectionEvent) {
	if err := e.deps.Backend.RecordSelectionEvent(&ev); err != nil {
		e.deps.LogManager.Logger().Error("Error recording selection event", "error", err)
	}
	e.publish(streaming.TypeSelection, streaming.SelectionPayload{
		CapsuleID: ev.CapsuleID,
		Source:    ev.Source,
		Distance:  ev.Distance,
		Unlocked:  ev.Distance >= 0 && proximity.Unlockable(ev.Distance),
	})
}

func (e *Engine) onSelectionCleared() {
	ev := core.SelectionEvent{Time: time.Now()}
	if err := e.deps.Backend.RecordSelectionEvent(&ev); err != nil {
		e.deps.LogManager.Logger().Error("Error recording selection clear", "error", err)
	}
	e.publish(streaming.TypeSelection, streaming.SelectionPayload{})
}

func (e *Engine) onScanStarted() {
	e.publish(streaming.TypeScanStarted, streaming.ScanStartedPayload{
		LatencyMs: e.deps.ScanLatency.Milliseconds(),
	})
}

func (e *Engine) onScanCompleted(r radar.Result) {
	e.ctx.IncScans()

	ev := core.ScanEvent{
		Time:        time.Now(),
		UserPos:     e.UserPosition(),
		NearbyCount: r.Count,
		CapsuleIDs:  r.CapsuleIDs,
	}
	if err := e.deps.Backend.RecordScanEvent(&ev); err != nil {
		e.deps.LogManager.Logger().Error("Error recording scan event", "error", err)
	}

	e.publish(streaming.TypeScanCompleted, streaming.ScanCompletedPayload{
		Count:      r.Count,
		CapsuleIDs: r.CapsuleIDs,
		Engage:     r.Engage,
	})
}

func (e *Engine) publish(msgType string, payload any) {
	env, err := streaming.NewEnvelope(msgType, payload)
	if err != nil {
		e.deps.LogManager.Logger().Error("Error building envelope",
			"type", msgType, "error", err)
		return
	}
	e.deps.Out.Send(env)
}
