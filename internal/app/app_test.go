package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/roomsync/internal/domain"
	"github.com/sharetube/roomsync/internal/search"
)

func validConfig() *AppConfig {
	return &AppConfig{
		ServerURL:         "ws://localhost:8000/ws",
		Room:              "abc12",
		Host:              "127.0.0.1",
		Port:              0,
		LogLevel:          "INFO",
		ReconnectInterval: 5 * time.Second,
		DriftInterval:     250 * time.Millisecond,
		DriftTolerance:    time.Second,
		SeekTolerance:     time.Second,
		LoadLatency:       time.Second,
		SearchCacheTTL:    time.Hour,
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		modify func(*AppConfig)
	}{
		{name: "no server", modify: func(c *AppConfig) { c.ServerURL = "" }},
		{name: "no room", modify: func(c *AppConfig) { c.Room = "" }},
		{name: "bad room", modify: func(c *AppConfig) { c.Room = "a/b" }},
		{name: "bad level", modify: func(c *AppConfig) { c.LogLevel = "LOUD" }},
		{name: "bad search url", modify: func(c *AppConfig) { c.SearchURL = "search" }},
		{name: "zero tolerance", modify: func(c *AppConfig) { c.SeekTolerance = 0 }},
		{name: "port", modify: func(c *AppConfig) { c.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateRoomError(t *testing.T) {
	cfg := validConfig()
	cfg.Room = "a b"
	assert.ErrorIs(t, cfg.Validate(), domain.ErrInvalidRoomID)
}

func TestNewSearcher(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	cfg := validConfig()
	s, rc, err := newSearcher(ctx, cfg, logger)
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Nil(t, rc)

	cfg.SearchURL = "http://localhost:9000/search"
	s, rc, err = newSearcher(ctx, cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &search.Client{}, s)
	assert.Nil(t, rc)

	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	cfg.RedisHost = mr.Host()
	cfg.RedisPort = port
	s, rc, err = newSearcher(ctx, cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, rc)
	defer rc.Close()
	assert.IsType(t, &search.Cached{}, s)
}

func TestRunJoinsRoomUntilCancelled(t *testing.T) {
	joined := make(chan string, 1)
	upgrader := websocket.Upgrader{}
	broker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		joined <- r.URL.Path
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"SYNC_STATE","payload":{"url":"","is_playing":false}}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer broker.Close()

	cfg := validConfig()
	cfg.ServerURL = "ws" + strings.TrimPrefix(broker.URL, "http") + "/ws"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- Run(ctx, cfg) }()

	select {
	case path := <-joined:
		assert.Equal(t, "/ws/ABC12", path)
	case <-time.After(5 * time.Second):
		t.Fatal("room was not joined")
	}

	cancel()
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not stop")
	}
}
