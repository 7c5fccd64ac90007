package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sharetube/roomsync/internal/search"
)

const searchPrefix = "search"

type repo struct {
	rc             *redis.Client
	expireDuration time.Duration
	logger         *slog.Logger
}

func NewRepo(rc *redis.Client, expireDuration time.Duration, logger *slog.Logger) *repo {
	return &repo{
		rc:             rc,
		expireDuration: expireDuration,
		logger:         logger,
	}
}

func (r repo) getSearchKey(query string) string {
	return searchPrefix + ":" + query
}

func (r repo) Get(ctx context.Context, query string) ([]search.Result, bool, error) {
	funcName := "search.redis.Get"
	r.logger.DebugContext(ctx, funcName, "query", query)

	raw, err := r.rc.Get(ctx, r.getSearchKey(query)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var results []search.Result
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached results: %w", err)
	}

	return results, true, nil
}

func (r repo) Set(ctx context.Context, query string, results []search.Result) error {
	funcName := "search.redis.Set"
	r.logger.DebugContext(ctx, funcName, "query", query, "results", len(results))

	raw, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	return r.rc.Set(ctx, r.getSearchKey(query), raw, r.expireDuration).Err()
}
