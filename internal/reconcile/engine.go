package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/sharetube/roomsync/internal/domain"
	"github.com/sharetube/roomsync/internal/drift"
	"github.com/sharetube/roomsync/internal/protocol"
	"github.com/sharetube/roomsync/internal/search"
	"github.com/sharetube/roomsync/internal/transport/ws"
	"github.com/sharetube/roomsync/pkg/ctxlogger"
)

const (
	DefaultDriftInterval = 250 * time.Millisecond
	DefaultSeekTolerance = time.Second
	DefaultLoadLatency   = time.Second

	commandBuffer = 64
)

var (
	ErrStopped        = errors.New("engine stopped")
	ErrAlreadyRunning = errors.New("engine already running")
	ErrSearchDisabled = errors.New("search is not configured")
)

type iTransport interface {
	Connect(ctx context.Context, roomID domain.RoomID) error
	Send(ctx context.Context, msg protocol.Outbound) error
	Events() <-chan ws.Event
	Close() error
}

type iPlayer interface {
	Load(ctx context.Context, url string)
	Play()
	Pause()
	SeekTo(pos time.Duration)
	Position() time.Duration
}

type iStore interface {
	Current() domain.PlaybackState
	Replace(state domain.PlaybackState)
	Merge(patch domain.PlaybackPatch) domain.PlaybackState
}

type iSearcher interface {
	Search(ctx context.Context, query string) ([]search.Result, error)
}

// Presenter is the user facing side of the engine.
type Presenter interface {
	ConnectionStateChanged(ctx context.Context, state ws.State)
	SearchResults(ctx context.Context, query string, results []search.Result)
	SearchFailed(ctx context.Context, query string, err error)
	SearchCleared(ctx context.Context)
	MediaLoadFailed(ctx context.Context, err error)
}

type Config struct {
	RoomID         domain.RoomID
	DriftInterval  time.Duration
	DriftTolerance time.Duration
	SeekTolerance  time.Duration
	LoadLatency    time.Duration
	Clock          clock.Clock
}

// pendingSeek is the one-shot corrective seek to the position of a room
// snapshot. It fires on player ready or when its timer expires, whichever
// comes first. Lag accumulated meanwhile is left to the drift check.
type pendingSeek struct {
	target time.Duration
	timer  *clock.Timer
}

// Engine reconciles the room timeline with the local player. All state
// below is owned by the Run goroutine; other goroutines reach it through
// the command queue.
type Engine struct {
	cfg       Config
	clock     clock.Clock
	transport iTransport
	player    iPlayer
	store     iStore
	searcher  iSearcher
	presenter Presenter
	drift     drift.Corrector
	seekGate  drift.Corrector
	logger    *slog.Logger

	commands chan func(context.Context)
	done     chan struct{}
	running  atomic.Bool
	snapshot atomic.Pointer[Snapshot]

	connState            ws.State
	mediaReady           bool
	gestureInProgress    bool
	lastCommandedPlaying bool
	pendingSeek          *pendingSeek
	lastGood             *domain.PlaybackState

	searchGeneration uint64
	searchQuery      string
	searchPending    bool
	searchResults    []search.Result
}

// New creates an engine. A nil searcher disables search.
func New(cfg Config, transport iTransport, player iPlayer, store iStore, searcher iSearcher, presenter Presenter, logger *slog.Logger) *Engine {
	if cfg.DriftInterval <= 0 {
		cfg.DriftInterval = DefaultDriftInterval
	}
	if cfg.SeekTolerance <= 0 {
		cfg.SeekTolerance = DefaultSeekTolerance
	}
	if cfg.LoadLatency <= 0 {
		cfg.LoadLatency = DefaultLoadLatency
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	e := &Engine{
		cfg:       cfg,
		clock:     cfg.Clock,
		transport: transport,
		player:    player,
		store:     store,
		searcher:  searcher,
		presenter: presenter,
		drift:     drift.New(cfg.DriftTolerance),
		seekGate:  drift.New(cfg.SeekTolerance),
		logger:    logger,
		commands:  make(chan func(context.Context), commandBuffer),
		done:      make(chan struct{}),
	}
	e.publish()

	return e
}

// Run connects to the room and processes events until ctx is cancelled.
// Cancellation stops all timers and closes the connection for good.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(e.done)

	ctx = ctxlogger.AppendCtx(ctx, slog.String("room_id", e.cfg.RoomID.String()))

	if err := e.transport.Connect(ctx, e.cfg.RoomID); err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "joined room")

	ticker := e.clock.Ticker(e.cfg.DriftInterval)
	defer ticker.Stop()

	events := e.transport.Events()
	for {
		var seekC <-chan time.Time
		if e.pendingSeek != nil {
			seekC = e.pendingSeek.timer.C
		}

		select {
		case <-ctx.Done():
			e.teardown(ctx)
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			e.handleEvent(ctx, ev)
		case fn := <-e.commands:
			fn(ctx)
		case <-ticker.C:
			e.checkDrift(ctx)
		case <-seekC:
			e.firePendingSeek(ctx)
		}

		e.publish()
	}
}

func (e *Engine) teardown(ctx context.Context) {
	e.cancelPendingSeek()
	e.searchGeneration++
	e.searchPending = false
	if err := e.transport.Close(); err != nil {
		e.logger.WarnContext(ctx, "failed to close connection", "error", err)
	}
	e.publish()
	e.logger.InfoContext(ctx, "left room")
}

// Done is closed once Run has returned.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

func (e *Engine) post(fn func(context.Context)) error {
	select {
	case <-e.done:
		return ErrStopped
	default:
	}

	select {
	case e.commands <- fn:
		return nil
	case <-e.done:
		return ErrStopped
	}
}

func (e *Engine) Play() error {
	return e.post(func(ctx context.Context) { e.userPlay(ctx, true) })
}

func (e *Engine) Pause() error {
	return e.post(func(ctx context.Context) { e.userPause(ctx, true) })
}

func (e *Engine) PointerDown() error {
	return e.post(e.pointerDown)
}

func (e *Engine) PointerUp(pos time.Duration) error {
	return e.post(func(ctx context.Context) { e.pointerUp(ctx, pos) })
}

// Seek performs a complete seek gesture.
func (e *Engine) Seek(pos time.Duration) error {
	return e.post(func(ctx context.Context) {
		e.pointerDown(ctx)
		e.pointerUp(ctx, pos)
	})
}

func (e *Engine) SelectMedia(url string) error {
	return e.post(func(ctx context.Context) { e.selectMedia(ctx, url) })
}

func (e *Engine) Search(query string) error {
	return e.post(func(ctx context.Context) { e.search(ctx, query) })
}

func (e *Engine) OnReady(url string) {
	_ = e.post(func(ctx context.Context) { e.onReady(ctx, url) })
}

func (e *Engine) OnError(url string, err error) {
	_ = e.post(func(ctx context.Context) { e.onError(ctx, url, err) })
}

// OnPlay and OnPause report state changes of the player backend. The
// headless player never reports them; an external backend does through the
// control API.
func (e *Engine) OnPlay() {
	_ = e.post(e.onPlay)
}

func (e *Engine) OnPause() {
	_ = e.post(e.onPause)
}

func (e *Engine) OnProgress(pos time.Duration) {
	_ = e.post(func(ctx context.Context) { e.onProgress(ctx, pos) })
}
