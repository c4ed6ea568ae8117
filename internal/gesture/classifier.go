// Package gesture classifies per-frame hand-landmark data into a discrete
// gesture state with hysteresis, so a noisy perception stream doesn't
// flicker the HUD or the selection state machine.
package gesture

// State is the discrete gesture state. Exactly one value is current at any
// time.
type State int

const (
	None State = iota
	Open
	Closed
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "none"
	}
}

// Fold thresholds relative to palm size. A fingertip within this multiple
// of the palm length from the wrist counts as folded. The thumb uses a
// tighter ratio because it is shorter.
const (
	fingerFoldRatio = 1.6
	thumbFoldRatio  = 1.3
)

var fingerTips = []int{IdxIndexTip, IdxMiddleTip, IdxRingTip, IdxPinkyTip}

// Classifier owns the confirmed gesture state across frames. Not safe for
// concurrent use; the session drives it from a single tick loop.
type Classifier struct {
	current State
}

// NewClassifier starts in the None state.
func NewClassifier() *Classifier {
	return &Classifier{current: None}
}

// Current returns the confirmed state.
func (c *Classifier) Current() State {
	return c.current
}

// Reset returns the classifier to None, as on session teardown.
func (c *Classifier) Reset() {
	c.current = None
}

// NoHand handles a "no hand detected" tick: the state drops to None
// immediately, with no grace period.
func (c *Classifier) NoHand() State {
	c.current = None
	return c.current
}

// Classify ingests one frame and returns the confirmed state after applying
// the transition rules. A malformed frame is treated as "no hand detected".
// An ambiguous fold count retains the previously confirmed state unchanged.
func (c *Classifier) Classify(frame LandmarkFrame) State {
	if !frame.Valid() {
		return c.NoHand()
	}

	folded := foldedCount(frame)

	switch {
	case folded >= 4:
		c.current = Closed
	case folded <= 1:
		c.current = Open
	}
	// 2-3 folded fingers is ambiguous: hysteresis keeps the current state.

	return c.current
}

// foldedCount counts curled fingers. Distances are normalized by palm size
// (wrist to middle-finger base knuckle) so the classification is invariant
// to hand size and camera distance.
func foldedCount(frame LandmarkFrame) int {
	wrist := frame[IdxWrist]
	palm := dist(wrist, frame[IdxMiddleKnuckle])

	count := 0
	for _, tip := range fingerTips {
		if dist(frame[tip], wrist) < palm*fingerFoldRatio {
			count++
		}
	}
	if dist(frame[IdxThumbTip], wrist) < palm*thumbFoldRatio {
		count++
	}
	return count
}
