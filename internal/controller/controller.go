package controller

import (
	"log/slog"
	"time"

	"github.com/sharetube/roomsync/internal/reconcile"
	"github.com/sharetube/roomsync/pkg/validator"
)

type iEngine interface {
	Play() error
	Pause() error
	PointerDown() error
	PointerUp(pos time.Duration) error
	Seek(pos time.Duration) error
	SelectMedia(url string) error
	Search(query string) error
	OnPlay()
	OnPause()
	OnProgress(pos time.Duration)
	Snapshot() reconcile.Snapshot
}

type controller struct {
	engine   iEngine
	validate *validator.Validator
	logger   *slog.Logger
}

func NewController(engine iEngine, logger *slog.Logger) *controller {
	return &controller{
		engine:   engine,
		validate: validator.NewValidator(),
		logger:   logger,
	}
}
