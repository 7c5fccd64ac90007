package reconcile

import (
	"context"
	"strings"

	"github.com/sharetube/roomsync/internal/search"
)

// search starts a query off the loop. A query that is itself a link is
// selected directly. Only the latest query may deliver results.
func (e *Engine) search(ctx context.Context, query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}
	if strings.HasPrefix(query, "http") {
		e.selectMedia(ctx, query)
		return
	}

	e.searchGeneration++
	gen := e.searchGeneration
	e.searchQuery = query
	e.searchPending = true
	e.searchResults = nil

	if e.searcher == nil {
		e.searchCompleted(ctx, gen, query, nil, ErrSearchDisabled)
		return
	}

	go func() {
		results, err := e.searcher.Search(ctx, query)
		_ = e.post(func(ctx context.Context) {
			e.searchCompleted(ctx, gen, query, results, err)
		})
	}()
}

func (e *Engine) searchCompleted(ctx context.Context, gen uint64, query string, results []search.Result, err error) {
	if gen != e.searchGeneration {
		e.logger.DebugContext(ctx, "dropping superseded search results", "query", query)
		return
	}
	e.searchPending = false

	if err != nil {
		e.searchResults = nil
		e.logger.WarnContext(ctx, "search failed", "query", query, "error", err)
		e.presenter.SearchFailed(ctx, query, err)
		return
	}

	e.searchResults = results
	e.presenter.SearchResults(ctx, query, results)
}

func (e *Engine) clearSearch(ctx context.Context) {
	e.searchGeneration++
	if e.searchQuery == "" && !e.searchPending && e.searchResults == nil {
		return
	}
	e.searchQuery = ""
	e.searchPending = false
	e.searchResults = nil
	e.presenter.SearchCleared(ctx)
}
