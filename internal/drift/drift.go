package drift

import (
	"time"

	"github.com/sharetube/roomsync/internal/domain"
)

const DefaultTolerance = time.Second

// Corrector compares the player position against the position estimated
// from the last authoritative state. Corrections are local seeks only.
type Corrector struct {
	Tolerance time.Duration
}

func New(tolerance time.Duration) Corrector {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return Corrector{Tolerance: tolerance}
}

// Correction returns the position the player should seek to and whether a
// seek is needed. Paused or empty states never need correction.
func (c Corrector) Correction(state domain.PlaybackState, actual time.Duration, now time.Time) (time.Duration, bool) {
	if !state.IsPlaying || state.MediaURL == "" {
		return 0, false
	}

	target := state.EstimatedPosition(now)
	if !c.Exceeds(actual, target) {
		return 0, false
	}

	return target, true
}

// Exceeds reports whether a and b differ by strictly more than the tolerance.
func (c Corrector) Exceeds(a, b time.Duration) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff > c.Tolerance
}
