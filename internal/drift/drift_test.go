package drift

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sharetube/roomsync/internal/domain"
)

func TestCorrection(t *testing.T) {
	c := New(time.Second)
	now := time.Now()
	state := domain.NewPlaybackState("https://example.com/v", true, 10*time.Second, now)

	tests := []struct {
		name   string
		actual time.Duration
		at     time.Time
		target time.Duration
		ok     bool
	}{
		{"in sync", 12 * time.Second, now.Add(2 * time.Second), 0, false},
		{"at tolerance", 13 * time.Second, now.Add(2 * time.Second), 0, false},
		{"ahead", 13*time.Second + time.Millisecond, now.Add(2 * time.Second), 12 * time.Second, true},
		{"behind", 5 * time.Second, now.Add(2 * time.Second), 12 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, ok := c.Correction(state, tt.actual, tt.at)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.target, target)
		})
	}
}

func TestCorrectionSkipsPaused(t *testing.T) {
	c := New(time.Second)
	now := time.Now()
	state := domain.NewPlaybackState("https://example.com/v", false, 10*time.Second, now)

	_, ok := c.Correction(state, 0, now.Add(time.Minute))
	assert.False(t, ok)
}

func TestNewDefaultsTolerance(t *testing.T) {
	assert.Equal(t, DefaultTolerance, New(0).Tolerance)
}
