package domain

import (
	"math"
	"time"
)

// PlaybackState is the local view of the room timeline. Position is the
// offset as of CapturedAt.
type PlaybackState struct {
	MediaURL   string        `json:"media_url"`
	IsPlaying  bool          `json:"is_playing"`
	Position   time.Duration `json:"position"`
	CapturedAt time.Time     `json:"captured_at"`
}

func NewPlaybackState(mediaURL string, isPlaying bool, position time.Duration, capturedAt time.Time) PlaybackState {
	return PlaybackState{
		MediaURL:   mediaURL,
		IsPlaying:  isPlaying,
		Position:   position,
		CapturedAt: capturedAt,
	}.Normalize()
}

// Normalize clamps the position to zero and clears IsPlaying when no media
// is loaded.
func (s PlaybackState) Normalize() PlaybackState {
	if s.Position < 0 {
		s.Position = 0
	}
	if s.MediaURL == "" {
		s.IsPlaying = false
	}
	return s
}

func (s PlaybackState) EstimatedPosition(now time.Time) time.Duration {
	if !s.IsPlaying || s.CapturedAt.IsZero() {
		return s.Position
	}

	elapsed := now.Sub(s.CapturedAt)
	if elapsed < 0 {
		elapsed = 0
	}

	return s.Position + elapsed
}

// Captured returns the state re-anchored at now, so that later estimates
// start from the position reached so far.
func (s PlaybackState) Captured(now time.Time) PlaybackState {
	s.Position = s.EstimatedPosition(now)
	s.CapturedAt = now
	return s
}

// PlaybackPatch holds optional field updates for a PlaybackState.
type PlaybackPatch struct {
	MediaURL   *string
	IsPlaying  *bool
	Position   *time.Duration
	CapturedAt *time.Time
}

func (s PlaybackState) Apply(p PlaybackPatch) PlaybackState {
	if p.MediaURL != nil {
		s.MediaURL = *p.MediaURL
	}
	if p.IsPlaying != nil {
		s.IsPlaying = *p.IsPlaying
	}
	if p.Position != nil {
		s.Position = *p.Position
	}
	if p.CapturedAt != nil {
		s.CapturedAt = *p.CapturedAt
	}
	return s.Normalize()
}

// Seconds converts wire seconds to a duration, rounded to the nanosecond.
func Seconds(seconds float64) time.Duration {
	return time.Duration(math.Round(seconds * float64(time.Second)))
}
