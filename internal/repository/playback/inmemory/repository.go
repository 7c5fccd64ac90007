package inmemory

import (
	"log/slog"

	"github.com/sharetube/roomsync/internal/domain"
)

// repo holds the local playback state. It has a single writer, the
// reconciliation engine goroutine, and is therefore not locked.
type repo struct {
	state  domain.PlaybackState
	logger *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{logger: logger}
}

func (r *repo) Current() domain.PlaybackState {
	return r.state
}

func (r *repo) Replace(state domain.PlaybackState) {
	funcName := "playback.inmemory.Replace"
	r.state = state.Normalize()
	r.logger.Debug(funcName, "state", r.state)
}

func (r *repo) Merge(patch domain.PlaybackPatch) domain.PlaybackState {
	funcName := "playback.inmemory.Merge"
	r.state = r.state.Apply(patch)
	r.logger.Debug(funcName, "state", r.state)
	return r.state
}
