package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"

	"github.com/sharetube/roomsync/internal/controller"
	"github.com/sharetube/roomsync/internal/domain"
	"github.com/sharetube/roomsync/internal/player"
	"github.com/sharetube/roomsync/internal/reconcile"
	playbackInmemory "github.com/sharetube/roomsync/internal/repository/playback/inmemory"
	searchRedis "github.com/sharetube/roomsync/internal/repository/search/redis"
	"github.com/sharetube/roomsync/internal/search"
	"github.com/sharetube/roomsync/internal/transport/ws"
	"github.com/sharetube/roomsync/pkg/ctxlogger"
	"github.com/sharetube/roomsync/pkg/mediainfo"
	"github.com/sharetube/roomsync/pkg/redisclient"
	"github.com/sharetube/roomsync/pkg/validator"
)

const shutdownTimeout = 30 * time.Second

type AppConfig struct {
	ServerURL         string        `json:"server_url" validate:"required,url"`
	Room              string        `json:"room" validate:"required"`
	SearchURL         string        `json:"search_url" validate:"omitempty,http_url"`
	Host              string        `json:"host"`
	Port              int           `json:"port" validate:"gte=0,max=65535"`
	LogLevel          string        `json:"log_level" validate:"required,oneof=DEBUG INFO WARN ERROR"`
	ReconnectInterval time.Duration `json:"reconnect_interval" validate:"gt=0"`
	DriftInterval     time.Duration `json:"drift_interval" validate:"gt=0"`
	DriftTolerance    time.Duration `json:"drift_tolerance" validate:"gt=0"`
	SeekTolerance     time.Duration `json:"seek_tolerance" validate:"gt=0"`
	LoadLatency       time.Duration `json:"load_latency" validate:"gt=0"`
	ResolveMedia      bool          `json:"resolve_media"`
	OEmbedURL         string        `json:"oembed_url" validate:"omitempty,http_url"`
	RedisHost         string        `json:"redis_host"`
	RedisPort         int           `json:"redis_port" validate:"gte=0,max=65535"`
	RedisPassword     string        `json:"-"`
	SearchCacheTTL    time.Duration `json:"search_cache_ttl" validate:"gte=0"`
}

func (cfg *AppConfig) Validate() error {
	validationErrors, ok := validator.NewValidator().Validate(cfg)
	if ok {
		if _, err := domain.NewRoomID(cfg.Room); err != nil {
			return err
		}
		return nil
	}

	errs := make([]error, 0, len(validationErrors))
	for _, err := range validationErrors {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

type searchService interface {
	Search(ctx context.Context, query string) ([]search.Result, error)
}

func newLogger(level string) (*slog.Logger, error) {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, err
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(&h), nil
}

func newSearcher(ctx context.Context, cfg *AppConfig, logger *slog.Logger) (searchService, *redis.Client, error) {
	if cfg.SearchURL == "" {
		return nil, nil, nil
	}

	client := search.NewClient(nil, cfg.SearchURL, logger)
	if cfg.RedisHost == "" {
		return client, nil, nil
	}

	rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
		Port:     cfg.RedisPort,
		Host:     cfg.RedisHost,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create redis client: %w", err)
	}

	cacheRepo := searchRedis.NewRepo(rc, cfg.SearchCacheTTL, logger)
	return search.NewCached(client, cacheRepo, logger), rc, nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}

	roomID, err := domain.NewRoomID(cfg.Room)
	if err != nil {
		return err
	}

	searcher, rc, err := newSearcher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
	}

	clk := clock.New()

	var headless *player.Headless
	if cfg.ResolveMedia {
		headless = player.NewHeadless(clk, mediainfo.NewResolver(nil, cfg.OEmbedURL), logger)
	} else {
		headless = player.NewHeadless(clk, nil, logger)
	}
	defer headless.Close()

	manager := ws.NewManager(ws.Config{
		ServerURL:         cfg.ServerURL,
		ReconnectInterval: cfg.ReconnectInterval,
		Clock:             clk,
	}, logger)

	engine := reconcile.New(reconcile.Config{
		RoomID:         roomID,
		DriftInterval:  cfg.DriftInterval,
		DriftTolerance: cfg.DriftTolerance,
		SeekTolerance:  cfg.SeekTolerance,
		LoadLatency:    cfg.LoadLatency,
		Clock:          clk,
	}, manager, headless, playbackInmemory.NewRepo(logger), searcher, newLogPresenter(logger), logger)
	headless.SetListener(engine)

	controller := controller.NewController(engine, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: controller.GetMux()}

	// graceful shutdown
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sig)
	go func() {
		select {
		case s := <-sig:
			logger.InfoContext(runCtx, "received signal", "signal", s.String())
		case <-runCtx.Done():
		}
		cancel()
	}()

	engineErr := make(chan error, 1)
	go func() {
		engineErr <- engine.Run(runCtx)
		cancel()
	}()

	go func() {
		<-runCtx.Done()

		shutdownCtx, c := context.WithTimeout(context.Background(), shutdownTimeout)
		defer c()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.ErrorContext(shutdownCtx, "failed to shut down control api", "error", err)
		}
	}()

	logger.InfoContext(runCtx, "starting control api", "address", server.Addr, "room_id", roomID.String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cancel()
		<-engineErr
		return fmt.Errorf("failed to serve control api: %w", err)
	}

	if err := <-engineErr; err != nil {
		return fmt.Errorf("failed to run room: %w", err)
	}

	select {
	case <-manager.Done():
	case <-time.After(shutdownTimeout):
		logger.Warn("connection did not close in time")
	}

	return nil
}
