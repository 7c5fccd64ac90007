package reconcile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/sharetube/roomsync/internal/domain"
	"github.com/sharetube/roomsync/internal/protocol"
	"github.com/sharetube/roomsync/internal/repository/playback/inmemory"
	"github.com/sharetube/roomsync/internal/search"
	"github.com/sharetube/roomsync/internal/transport/ws"
)

type fakeTransport struct {
	mu      sync.Mutex
	events  chan ws.Event
	sent    []protocol.Outbound
	room    domain.RoomID
	closed  bool
	sendErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan ws.Event, 16)}
}

func (t *fakeTransport) Connect(_ context.Context, roomID domain.RoomID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.room = roomID
	return nil
}

func (t *fakeTransport) Send(_ context.Context, msg protocol.Outbound) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sendErr != nil {
		return t.sendErr
	}
	t.sent = append(t.sent, msg)
	return nil
}

func (t *fakeTransport) Events() <-chan ws.Event {
	return t.events
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *fakeTransport) Sent() []protocol.Outbound {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]protocol.Outbound(nil), t.sent...)
}

func (t *fakeTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

type fakePlayer struct {
	mu       sync.Mutex
	calls    []string
	position time.Duration
}

func (p *fakePlayer) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
}

func (p *fakePlayer) Load(_ context.Context, url string) {
	p.record("load " + url)
	p.mu.Lock()
	p.position = 0
	p.mu.Unlock()
}

func (p *fakePlayer) Play()  { p.record("play") }
func (p *fakePlayer) Pause() { p.record("pause") }

func (p *fakePlayer) SeekTo(pos time.Duration) {
	p.record("seek " + pos.String())
	p.mu.Lock()
	p.position = pos
	p.mu.Unlock()
}

func (p *fakePlayer) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

func (p *fakePlayer) SetPosition(pos time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = pos
}

func (p *fakePlayer) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakePlayer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}

type fakePresenter struct {
	mu    sync.Mutex
	calls []string
	errs  []error
}

func (p *fakePresenter) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
}

func (p *fakePresenter) ConnectionStateChanged(_ context.Context, state ws.State) {
	p.record("state " + state.String())
}

func (p *fakePresenter) SearchResults(_ context.Context, query string, results []search.Result) {
	p.record(fmt.Sprintf("results %s %d", query, len(results)))
}

func (p *fakePresenter) SearchFailed(_ context.Context, query string, err error) {
	p.record("failed " + query)
	p.mu.Lock()
	p.errs = append(p.errs, err)
	p.mu.Unlock()
}

func (p *fakePresenter) SearchCleared(_ context.Context) {
	p.record("cleared")
}

func (p *fakePresenter) MediaLoadFailed(_ context.Context, err error) {
	p.record("load failed")
	p.mu.Lock()
	p.errs = append(p.errs, err)
	p.mu.Unlock()
}

func (p *fakePresenter) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

type fakeSearcher struct {
	results map[string][]search.Result
	err     error
}

func (s fakeSearcher) Search(_ context.Context, query string) ([]search.Result, error) {
	if s.err != nil {
		return nil, &search.Error{Query: query, Err: s.err}
	}
	return s.results[query], nil
}

type harness struct {
	engine    *Engine
	transport *fakeTransport
	player    *fakePlayer
	presenter *fakePresenter
	clock     *clock.Mock
	ctx       context.Context
}

func newHarness(t *testing.T, searcher iSearcher) *harness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		transport: newFakeTransport(),
		player:    &fakePlayer{},
		presenter: &fakePresenter{},
		clock:     clock.NewMock(),
		ctx:       context.Background(),
	}
	h.engine = New(Config{RoomID: "ROOM1", Clock: h.clock}, h.transport, h.player,
		inmemory.NewRepo(logger), searcher, h.presenter, logger)

	return h
}

func (h *harness) frame(raw string) {
	h.engine.handleEvent(h.ctx, ws.Event{Type: ws.EventFrame, Frame: []byte(raw)})
}

// ready joins a room playing url from pos and reports the media ready.
func (h *harness) ready(url string, playing bool, pos float64) {
	h.engine.handleInbound(h.ctx, protocol.SyncState{URL: url, IsPlaying: playing, Timestamp: pos})
	h.engine.onReady(h.ctx, url)
	h.player.Reset()
}
