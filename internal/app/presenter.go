package app

import (
	"context"
	"log/slog"

	"github.com/sharetube/roomsync/internal/search"
	"github.com/sharetube/roomsync/internal/transport/ws"
)

// logPresenter renders engine notifications as log records.
type logPresenter struct {
	logger *slog.Logger
}

func newLogPresenter(logger *slog.Logger) *logPresenter {
	return &logPresenter{logger: logger}
}

func (p *logPresenter) ConnectionStateChanged(ctx context.Context, state ws.State) {
	if state == ws.Open {
		p.logger.InfoContext(ctx, "connection status", "status", state.Label())
		return
	}
	p.logger.WarnContext(ctx, "connection status", "status", state.Label())
}

func (p *logPresenter) SearchResults(ctx context.Context, query string, results []search.Result) {
	p.logger.InfoContext(ctx, "search results", "query", query, "count", len(results))
	for i, r := range results {
		p.logger.DebugContext(ctx, "search result", "index", i, "title", r.Title, "url", r.URL, "channel", r.Channel)
	}
}

func (p *logPresenter) SearchFailed(ctx context.Context, query string, err error) {
	p.logger.WarnContext(ctx, "search failed", "query", query, "error", err)
}

func (p *logPresenter) SearchCleared(ctx context.Context) {
	p.logger.DebugContext(ctx, "search cleared")
}

func (p *logPresenter) MediaLoadFailed(ctx context.Context, err error) {
	p.logger.WarnContext(ctx, "media could not be loaded", "error", err)
}
