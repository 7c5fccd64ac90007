package reconcile

import (
	"time"

	"github.com/sharetube/roomsync/internal/domain"
	"github.com/sharetube/roomsync/internal/search"
	"github.com/sharetube/roomsync/internal/transport/ws"
)

type Snapshot struct {
	RoomID            domain.RoomID `json:"room_id"`
	Connection        ws.State      `json:"connection"`
	ConnectionLabel   string        `json:"connection_label"`
	MediaURL          string        `json:"media_url"`
	IsPlaying         bool          `json:"is_playing"`
	Position          float64       `json:"position"`
	MediaReady        bool          `json:"media_ready"`
	GestureInProgress bool          `json:"gesture_in_progress"`
	Search            SearchState   `json:"search"`

	publishedAt time.Time
}

type SearchState struct {
	Query   string          `json:"query"`
	Pending bool            `json:"pending"`
	Results []search.Result `json:"results"`
}

// Snapshot returns the engine state as of the last processed event, with
// the position advanced to the current time while playing.
func (e *Engine) Snapshot() Snapshot {
	s := *e.snapshot.Load()
	if s.IsPlaying {
		if elapsed := e.clock.Since(s.publishedAt); elapsed > 0 {
			s.Position += elapsed.Seconds()
		}
	}
	return s
}

func (e *Engine) publish() {
	state := e.store.Current()
	now := e.clock.Now()
	s := Snapshot{
		RoomID:            e.cfg.RoomID,
		Connection:        e.connState,
		ConnectionLabel:   e.connState.Label(),
		MediaURL:          state.MediaURL,
		IsPlaying:         state.IsPlaying,
		Position:          state.EstimatedPosition(now).Seconds(),
		MediaReady:        e.mediaReady,
		GestureInProgress: e.gestureInProgress,
		Search: SearchState{
			Query:   e.searchQuery,
			Pending: e.searchPending,
			Results: append([]search.Result(nil), e.searchResults...),
		},
		publishedAt: now,
	}
	e.snapshot.Store(&s)
}
