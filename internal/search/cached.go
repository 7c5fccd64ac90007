package search

import (
	"context"
	"log/slog"
)

type iSearcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

type iCacheRepo interface {
	Get(ctx context.Context, query string) ([]Result, bool, error)
	Set(ctx context.Context, query string, results []Result) error
}

// Cached serves repeated queries from a cache. Cache failures are logged
// and fall through to the wrapped searcher.
type Cached struct {
	next   iSearcher
	repo   iCacheRepo
	logger *slog.Logger
}

func NewCached(next iSearcher, repo iCacheRepo, logger *slog.Logger) *Cached {
	return &Cached{next: next, repo: repo, logger: logger}
}

func (c *Cached) Search(ctx context.Context, query string) ([]Result, error) {
	key := NormalizeQuery(query)

	results, ok, err := c.repo.Get(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "search cache read failed", "error", err)
	} else if ok {
		c.logger.DebugContext(ctx, "search cache hit", "query", key)
		return results, nil
	}

	results, err = c.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	if err := c.repo.Set(ctx, key, results); err != nil {
		c.logger.WarnContext(ctx, "search cache write failed", "error", err)
	}

	return results, nil
}
