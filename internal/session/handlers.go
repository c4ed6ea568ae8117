package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/geostash/engine/internal/dispatcher"
	"github.com/geostash/engine/internal/geo"
	"github.com/geostash/engine/internal/gesture"
	"github.com/geostash/engine/internal/influx"
	"github.com/geostash/engine/internal/util"
	"github.com/geostash/engine/pkg/streaming"
)

// RegisterHandlers registers all bridge command handlers with the dispatcher.
func (e *Engine) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Geolocation feed - sync so the scene recompute sees every fix
	d.Register(":GEO:POSITION:", e.handlePosition, dispatcher.Logged())
	d.Register(":GEO:ERROR:", e.handleGeoError, dispatcher.Logged())

	// Hand landmark frames - latest wins, stale frames are worthless. Both
	// signals funnel into one conflated mailbox so a no-hand arriving after
	// a hand frame can never be processed out of order.
	d.Register(frameCommand, e.handleFrame, dispatcher.Conflated(), dispatcher.Logged())
	d.Register(":FRAME:HAND:", func(ev dispatcher.Event) (any, error) {
		return d.Dispatch(dispatcher.Event{Command: frameCommand, Args: ev.Args, Timestamp: ev.Timestamp})
	})
	d.Register(":FRAME:NONE:", func(ev dispatcher.Event) (any, error) {
		return d.Dispatch(dispatcher.Event{Command: frameCommand, Timestamp: ev.Timestamp})
	})

	// Compass heading - high volume
	d.Register(":HEADING:", e.handleHeading, dispatcher.Buffered(100), dispatcher.Logged())

	// Direct interaction
	d.Register(":POINTER:PICK:", e.handlePointerPick, dispatcher.Logged())
	d.Register(":SCAN:TRIGGER:", e.handleScanTrigger, dispatcher.Logged())

	// Capsule snapshot from the store
	d.Register(":CAPSULE:SYNC:", e.handleCapsuleSync, dispatcher.Logged())

	// Device metrics - buffered
	d.Register(":METRIC:", e.handleMetric, dispatcher.Buffered(1000))
}

func (e *Engine) handlePosition(ev dispatcher.Event) (any, error) {
	coord, err := e.deps.Parser.ParsePosition(ev.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to apply position: %w", err)
	}

	e.mu.Lock()
	wasAvailable := e.geoAvailable
	e.user = coord
	e.geoAvailable = true
	e.mu.Unlock()

	if !wasAvailable {
		e.publish(streaming.TypeSensorStatus, streaming.SensorStatusPayload{GeoAvailable: true})
	}
	e.recomputeScene()

	return nil, nil
}

// handleGeoError drops the fix back to the sentinel. Anchors and the nearby
// set are recomputed against it rather than frozen at the last good fix.
func (e *Engine) handleGeoError(ev dispatcher.Event) (any, error) {
	message := strings.Join(util.SanitizeArgs(ev.Args), " ")

	e.mu.Lock()
	e.user = geo.Sentinel
	e.geoAvailable = false
	e.mu.Unlock()

	e.publish(streaming.TypeSensorStatus, streaming.SensorStatusPayload{
		GeoAvailable: false,
		Message:      message,
	})
	e.recomputeScene()

	return nil, nil
}

// frameCommand is the internal command both perception signals collapse
// into. Empty args mean no hand this tick.
const frameCommand = ":FRAME:"

func (e *Engine) handleFrame(ev dispatcher.Event) (any, error) {
	if len(ev.Args) == 0 {
		return e.handleNoHand(ev)
	}
	return e.handleHandFrame(ev)
}

func (e *Engine) handleHandFrame(ev dispatcher.Event) (any, error) {
	start := time.Now()
	e.ctx.IncFrames()

	var state gesture.State
	frame, err := e.deps.Parser.ParseLandmarkFrame(ev.Args)
	if err != nil {
		// a malformed frame must not fail the feed
		e.deps.LogManager.Logger().Warn("Malformed landmark frame", "error", err)
		state = e.classifyNoHand()
	} else {
		state = e.classifyFrame(frame)
	}

	e.publishGesture(state)
	e.controller.OnGesture(state, e.UserPosition(), e.nearby())
	e.observeTick(time.Since(start))

	return nil, nil
}

func (e *Engine) handleNoHand(ev dispatcher.Event) (any, error) {
	state := e.classifyNoHand()
	e.publishGesture(state)
	e.controller.OnGesture(state, e.UserPosition(), nil)
	return nil, nil
}

func (e *Engine) handleHeading(ev dispatcher.Event) (any, error) {
	deg, err := e.deps.Parser.ParseHeading(ev.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to apply heading: %w", err)
	}

	e.mu.Lock()
	e.heading = deg
	e.mu.Unlock()

	return nil, nil
}

func (e *Engine) handlePointerPick(ev dispatcher.Event) (any, error) {
	args := util.SanitizeArgs(ev.Args)
	if len(args) < 1 || args[0] == "" {
		return nil, fmt.Errorf("pointer pick: no capsule id")
	}
	capsuleID := args[0]

	// Distance is informational; an unknown capsule still gets picked.
	distance := -1.0
	if capsules, err := e.deps.Backend.Capsules(); err == nil {
		for _, c := range capsules {
			if c.ID == capsuleID {
				distance = geo.Distance(e.UserPosition(), c.Position)
				break
			}
		}
	}

	e.controller.PointerPick(capsuleID, distance)

	return nil, nil
}

// handleScanTrigger starts a scan. A trigger while a scan is already in
// progress is ignored, not an error.
func (e *Engine) handleScanTrigger(ev dispatcher.Event) (any, error) {
	e.scanner.Trigger(e.nearby)
	return nil, nil
}

func (e *Engine) handleCapsuleSync(ev dispatcher.Event) (any, error) {
	capsules, err := e.deps.Parser.ParseCapsuleSync(ev.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to sync capsules: %w", err)
	}

	if err := e.deps.Backend.UpsertCapsules(capsules); err != nil {
		return nil, fmt.Errorf("failed to store capsule snapshot: %w", err)
	}
	e.recomputeScene()

	return len(capsules), nil
}

func (e *Engine) handleMetric(ev dispatcher.Event) (any, error) {
	if e.deps.InfluxManager == nil {
		return nil, nil
	}

	bucket, point, err := influx.ProcessMetricData(ev.Args, util.FixEscapeQuotes, util.TrimQuotes)
	if err != nil {
		return nil, fmt.Errorf("failed to process metric: %w", err)
	}
	return nil, e.deps.InfluxManager.WritePoint(context.Background(), bucket, point)
}

func (e *Engine) classifyFrame(frame gesture.LandmarkFrame) gesture.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.classifier.Classify(frame)
}

func (e *Engine) classifyNoHand() gesture.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.classifier.NoHand()
}
