package reconcile

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sharetube/roomsync/internal/domain"
	"github.com/sharetube/roomsync/internal/protocol"
	"github.com/sharetube/roomsync/internal/transport/ws"
)

func (e *Engine) handleEvent(ctx context.Context, ev ws.Event) {
	switch ev.Type {
	case ws.EventState:
		e.connState = ev.State
		e.presenter.ConnectionStateChanged(ctx, ev.State)
	case ws.EventFrame:
		msg, err := protocol.Decode(ev.Frame)
		if err != nil {
			if errors.Is(err, protocol.ErrUnknownType) {
				e.logger.InfoContext(ctx, "dropping unrecognized message", "error", err)
			} else {
				e.logger.WarnContext(ctx, "dropping malformed frame", "error", err)
			}
			return
		}
		e.handleInbound(ctx, msg)
	}
}

// handleInbound applies a broker message locally. It never sends.
func (e *Engine) handleInbound(ctx context.Context, msg protocol.Inbound) {
	e.logger.DebugContext(ctx, "inbound message", "type", msg.Type())

	switch m := msg.(type) {
	case protocol.SyncState:
		e.syncState(ctx, m)
	case protocol.Play:
		e.applyPlay()
	case protocol.Pause:
		e.applyPause()
	case protocol.ChangeURL:
		if strings.TrimSpace(m.URL) == "" {
			e.logger.InfoContext(ctx, "dropping change without media")
			return
		}
		e.changeMedia(ctx, m.URL)
	case protocol.Seek:
		e.remoteSeek(ctx, domain.Seconds(m.Time))
	case protocol.Unrecognized:
		e.logger.InfoContext(ctx, "dropping unrecognized message", "type", m.Tag)
	}
}

func (e *Engine) syncState(ctx context.Context, m protocol.SyncState) {
	now := e.clock.Now()
	state := domain.NewPlaybackState(m.URL, m.IsPlaying, domain.Seconds(m.Timestamp), now)
	prev := e.store.Current()
	e.store.Replace(state)

	if e.mediaReady && state.MediaURL == prev.MediaURL {
		e.cancelPendingSeek()
		e.alignPosition()
		if state.IsPlaying != e.lastCommandedPlaying {
			e.direct(state.IsPlaying)
		}
		return
	}

	e.loadMedia(ctx, state.MediaURL)
	if state.MediaURL != "" && state.Position > 0 {
		e.pendingSeek = &pendingSeek{
			target: state.Position,
			timer:  e.clock.Timer(e.cfg.LoadLatency),
		}
	}
}

func (e *Engine) applyPlay() {
	state := e.store.Current()
	if state.IsPlaying || state.MediaURL == "" {
		return
	}

	playing := true
	now := e.clock.Now()
	e.store.Merge(domain.PlaybackPatch{IsPlaying: &playing, CapturedAt: &now})
	if e.mediaReady {
		e.direct(true)
	}
}

func (e *Engine) applyPause() {
	state := e.store.Current()
	if !state.IsPlaying {
		return
	}

	state = state.Captured(e.clock.Now())
	state.IsPlaying = false
	e.store.Replace(state)
	if e.mediaReady {
		e.direct(false)
	}
}

func (e *Engine) changeMedia(ctx context.Context, url string) {
	e.store.Replace(domain.NewPlaybackState(url, true, 0, e.clock.Now()))
	e.gestureInProgress = false
	e.clearSearch(ctx)
	e.loadMedia(ctx, url)
}

// remoteSeek records the new position and moves the player only when it is
// further away than the seek tolerance.
func (e *Engine) remoteSeek(ctx context.Context, target time.Duration) {
	now := e.clock.Now()
	local := e.localPosition()
	e.store.Merge(domain.PlaybackPatch{Position: &target, CapturedAt: &now})

	if !e.mediaReady || !e.seekGate.Exceeds(local, target) {
		return
	}
	e.logger.DebugContext(ctx, "seeking to room position", "from", local, "to", target)
	e.player.SeekTo(target)
}

func (e *Engine) userPlay(ctx context.Context, direct bool) {
	state := e.store.Current()
	if state.IsPlaying || state.MediaURL == "" {
		e.lastCommandedPlaying = state.IsPlaying
		return
	}

	playing := true
	now := e.clock.Now()
	e.store.Merge(domain.PlaybackPatch{IsPlaying: &playing, CapturedAt: &now})
	if direct && e.mediaReady {
		e.player.Play()
	}
	e.lastCommandedPlaying = true
	e.send(ctx, protocol.Play{})
}

func (e *Engine) userPause(ctx context.Context, direct bool) {
	state := e.store.Current()
	if !state.IsPlaying {
		e.lastCommandedPlaying = false
		return
	}

	state = state.Captured(e.clock.Now())
	state.IsPlaying = false
	e.store.Replace(state)
	if direct && e.mediaReady {
		e.player.Pause()
	}
	e.lastCommandedPlaying = false
	e.send(ctx, protocol.Pause{})
}

func (e *Engine) pointerDown(ctx context.Context) {
	e.gestureInProgress = true
	e.logger.DebugContext(ctx, "seek gesture started")
}

// pointerUp ends a seek gesture. SEEK is emitted once per gesture.
func (e *Engine) pointerUp(ctx context.Context, pos time.Duration) {
	if !e.gestureInProgress {
		return
	}
	e.gestureInProgress = false

	if pos < 0 {
		pos = 0
	}
	now := e.clock.Now()
	e.store.Merge(domain.PlaybackPatch{Position: &pos, CapturedAt: &now})
	if e.mediaReady {
		e.player.SeekTo(pos)
	}
	e.send(ctx, protocol.Seek{Time: pos.Seconds()})
}

func (e *Engine) selectMedia(ctx context.Context, url string) {
	url = strings.TrimSpace(url)
	if url == "" {
		return
	}

	e.changeMedia(ctx, url)
	e.send(ctx, protocol.ChangeURL{URL: url})
}

// send delivers a gesture to the room. A failed send is dropped; the local
// change stands and the next snapshot after reconnect wins.
func (e *Engine) send(ctx context.Context, msg protocol.Outbound) {
	if err := e.transport.Send(ctx, msg); err != nil {
		e.logger.WarnContext(ctx, "dropping outbound message", "type", msg.Type(), "error", err)
	}
}

func (e *Engine) onReady(ctx context.Context, url string) {
	state := e.store.Current()
	if url != state.MediaURL {
		e.logger.DebugContext(ctx, "ignoring stale ready", "url", url)
		return
	}

	e.mediaReady = true
	e.lastGood = &state

	if e.pendingSeek != nil {
		e.firePendingSeek(ctx)
	} else {
		e.alignPosition()
	}
	e.direct(state.IsPlaying)
}

func (e *Engine) onError(ctx context.Context, url string, err error) {
	if url != e.store.Current().MediaURL {
		e.logger.DebugContext(ctx, "ignoring stale load error", "url", url)
		return
	}

	e.mediaReady = false
	e.cancelPendingSeek()
	e.presenter.MediaLoadFailed(ctx, err)

	if e.lastGood == nil || e.lastGood.MediaURL == url {
		return
	}
	e.logger.InfoContext(ctx, "reverting to last playable media", "url", e.lastGood.MediaURL)
	e.store.Replace(*e.lastGood)
	e.loadMedia(ctx, e.lastGood.MediaURL)
}

// onPlay and onPause receive player state changes. A change confirming the
// last directive is ours; anything else came from the operator.
func (e *Engine) onPlay(ctx context.Context) {
	if !e.mediaReady || e.lastCommandedPlaying {
		return
	}
	e.userPlay(ctx, false)
}

func (e *Engine) onPause(ctx context.Context) {
	if !e.mediaReady || !e.lastCommandedPlaying {
		return
	}
	e.userPause(ctx, false)
}

func (e *Engine) onProgress(ctx context.Context, pos time.Duration) {
	if !e.mediaReady || !e.gestureInProgress {
		return
	}
	e.logger.DebugContext(ctx, "seek gesture progress", "position", pos)
}

func (e *Engine) checkDrift(ctx context.Context) {
	if !e.mediaReady || e.gestureInProgress || e.pendingSeek != nil {
		return
	}

	actual := e.player.Position()
	target, ok := e.drift.Correction(e.store.Current(), actual, e.clock.Now())
	if !ok {
		return
	}
	e.logger.DebugContext(ctx, "correcting drift", "actual", actual, "target", target)
	e.player.SeekTo(target)
}

func (e *Engine) firePendingSeek(ctx context.Context) {
	if e.pendingSeek == nil {
		return
	}
	target := e.pendingSeek.target
	e.cancelPendingSeek()

	e.logger.DebugContext(ctx, "corrective seek", "target", target)
	e.player.SeekTo(target)
}

func (e *Engine) cancelPendingSeek() {
	if e.pendingSeek == nil {
		return
	}
	e.pendingSeek.timer.Stop()
	e.pendingSeek = nil
}

func (e *Engine) loadMedia(ctx context.Context, url string) {
	e.cancelPendingSeek()
	e.mediaReady = false
	if url == "" {
		e.direct(false)
		return
	}
	e.player.Load(ctx, url)
}

// alignPosition seeks a ready player to the room position if it is beyond
// the seek tolerance.
func (e *Engine) alignPosition() {
	target := e.store.Current().EstimatedPosition(e.clock.Now())
	if e.seekGate.Exceeds(e.player.Position(), target) {
		e.player.SeekTo(target)
	}
}

func (e *Engine) direct(playing bool) {
	if playing {
		e.player.Play()
	} else {
		e.player.Pause()
	}
	e.lastCommandedPlaying = playing
}

func (e *Engine) localPosition() time.Duration {
	if e.mediaReady {
		return e.player.Position()
	}
	return e.store.Current().EstimatedPosition(e.clock.Now())
}
