package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sharetube/roomsync/internal/domain"
	"github.com/sharetube/roomsync/internal/protocol"
	"github.com/sharetube/roomsync/pkg/ctxlogger"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	DefaultReconnectInterval = 5 * time.Second
)

var (
	ErrNotConnected     = errors.New("connection is not open")
	ErrAlreadyConnected = errors.New("connection already started")
)

type Config struct {
	// ServerURL is the websocket endpoint the room id is appended to,
	// e.g. ws://localhost:8000/ws.
	ServerURL         string
	ReconnectInterval time.Duration
	EventBuffer       int
	Dialer            *websocket.Dialer
	Clock             clock.Clock
}

type Manager struct {
	cfg    Config
	logger *slog.Logger
	clock  clock.Clock

	mu     sync.Mutex
	state  State
	conn   *websocket.Conn
	cancel context.CancelFunc

	// emitMu orders events on the channel; it is never held together with mu
	// while blocking.
	emitMu       sync.Mutex
	eventsClosed bool

	writeMu sync.Mutex
	events  chan Event
	done    chan struct{}
}

func NewManager(cfg Config, logger *slog.Logger) *Manager {
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = DefaultReconnectInterval
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &websocket.Dialer{HandshakeTimeout: writeWait}
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	return &Manager{
		cfg:    cfg,
		logger: logger,
		clock:  cfg.Clock,
		state:  Uninstantiated,
		events: make(chan Event, cfg.EventBuffer),
		done:   make(chan struct{}),
	}
}

// Events delivers state transitions and inbound frames in order. The channel
// is closed once the manager has stopped for good.
func (m *Manager) Events() <-chan Event {
	return m.events
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Done is closed when the connection loop has exited.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Connect starts the connection loop for roomID. Closures not caused by
// Close or by ctx are retried forever.
func (m *Manager) Connect(ctx context.Context, roomID domain.RoomID) error {
	target, err := m.target(roomID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return ErrAlreadyConnected
	}
	runCtx, cancel := context.WithCancel(ctxlogger.AppendCtx(ctx, slog.String("room_id", roomID.String())))
	m.cancel = cancel
	m.mu.Unlock()

	go m.run(runCtx, target)

	return nil
}

func (m *Manager) target(roomID domain.RoomID) (string, error) {
	u, err := url.Parse(m.cfg.ServerURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("invalid server url scheme %q", u.Scheme)
	}

	return strings.TrimRight(u.String(), "/") + "/" + url.PathEscape(roomID.String()), nil
}

// Close shuts the connection down without reconnecting. The loop reports
// Closing and then Closed before the events channel is closed.
func (m *Manager) Close() error {
	m.mu.Lock()
	cancel := m.cancel
	conn := m.conn
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		return conn.Close()
	}

	return nil
}

func (m *Manager) Send(ctx context.Context, msg protocol.Outbound) error {
	m.mu.Lock()
	conn := m.conn
	state := m.state
	m.mu.Unlock()

	if state != Open || conn == nil {
		return fmt.Errorf("failed to send %s: %w", msg.Type(), ErrNotConnected)
	}

	frame, err := protocol.Encode(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", msg.Type(), err)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("failed to write %s: %w", msg.Type(), err)
	}

	m.logger.DebugContext(ctx, "message sent", "type", msg.Type())
	return nil
}

func (m *Manager) run(ctx context.Context, target string) {
	defer func() {
		if m.State() != Closed {
			m.setState(ctx, Closing)
		}
		m.setState(ctx, Closed)
		m.emitMu.Lock()
		m.eventsClosed = true
		close(m.events)
		m.emitMu.Unlock()
		close(m.done)
	}()

	for {
		connCtx := ctxlogger.AppendCtx(ctx, slog.String("conn_id", uuid.NewString()))
		m.setState(connCtx, Connecting)

		conn, _, err := m.cfg.Dialer.DialContext(connCtx, target, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.WarnContext(connCtx, "failed to connect", "target", target, "error", err)
		} else {
			m.mu.Lock()
			m.conn = conn
			m.mu.Unlock()
			m.setState(connCtx, Open)
			m.logger.InfoContext(connCtx, "connected", "target", target)

			err := m.serve(connCtx, conn)

			m.mu.Lock()
			m.conn = nil
			m.mu.Unlock()

			if ctx.Err() != nil {
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				m.logger.WarnContext(connCtx, "connection lost", "error", err)
			} else {
				m.logger.InfoContext(connCtx, "connection closed by remote", "error", err)
			}
		}

		m.setState(connCtx, Closed)

		select {
		case <-ctx.Done():
			return
		case <-m.clock.After(m.cfg.ReconnectInterval):
		}
	}
}

func (m *Manager) serve(ctx context.Context, conn *websocket.Conn) error {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go m.keepalive(connCtx, conn)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		m.emit(ctx, Event{Type: EventFrame, Frame: frame})
	}
}

func (m *Manager) keepalive(ctx context.Context, conn *websocket.Conn) {
	ticker := m.clock.Ticker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (m *Manager) setState(ctx context.Context, s State) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	if m.eventsClosed {
		return
	}

	m.mu.Lock()
	prev := m.state
	m.state = s
	m.mu.Unlock()

	if prev == s {
		return
	}
	m.logger.DebugContext(ctx, "connection state changed", "from", prev, "to", s)
	m.emitLocked(ctx, Event{Type: EventState, State: s})
}

func (m *Manager) emit(ctx context.Context, ev Event) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	if m.eventsClosed {
		return
	}
	m.emitLocked(ctx, ev)
}

// emitLocked blocks while the consumer is behind, unless ctx is done, in
// which case the event is only delivered if there is room for it.
func (m *Manager) emitLocked(ctx context.Context, ev Event) {
	select {
	case m.events <- ev:
	case <-ctx.Done():
		select {
		case m.events <- ev:
		default:
		}
	}
}
