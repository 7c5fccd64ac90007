package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchDropsInvalidResults(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		fmt.Fprint(w, `[
			{"title":"one","url":"https://youtu.be/1","thumbnail":"t","channel":"c","duration":"4:13"},
			{"title":"no url"},
			{"title":"bad url","url":"not a url"}
		]`)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, slog.Default())
	results, err := c.Search(context.Background(), "lo-fi beats")
	require.NoError(t, err)

	assert.Equal(t, "lo-fi beats", gotQuery)
	require.Len(t, results, 1)
	assert.Equal(t, Result{Title: "one", URL: "https://youtu.be/1", Thumbnail: "t", Channel: "c", Duration: "4:13"}, results[0])
}

func TestSearchDurationForms(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"title":"clip","url":"https://youtu.be/1","duration":"1:02:03"},
			{"title":"live","url":"https://youtu.be/2","duration":null},
			{"title":"seconds","url":"https://youtu.be/3","duration":61.5},
			{"title":"missing","url":"https://youtu.be/4"}
		]`)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, slog.Default())
	results, err := c.Search(context.Background(), "jazz")
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, Duration("1:02:03"), results[0].Duration)
	assert.Equal(t, Duration(""), results[1].Duration)
	assert.Equal(t, Duration("61.5"), results[2].Duration)
	assert.Equal(t, Duration(""), results[3].Duration)
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			want: ErrUnexpectedStatus,
		},
		{
			name: "body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"not":"a list"}`)
			},
			want: ErrBadResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(srv.Client(), srv.URL, slog.Default())
			results, err := c.Search(context.Background(), "q")
			assert.Nil(t, results)

			var searchErr *Error
			require.True(t, errors.As(err, &searchErr))
			assert.Equal(t, "q", searchErr.Query)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSearchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	c := NewClient(nil, endpoint, slog.Default())
	_, err := c.Search(context.Background(), "q")

	var searchErr *Error
	assert.True(t, errors.As(err, &searchErr))
}

type countingSearcher struct {
	calls int
	err   error
}

func (s *countingSearcher) Search(_ context.Context, query string) ([]Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []Result{{Title: query, URL: "https://youtu.be/" + query}}, nil
}

type mapCache struct {
	m      map[string][]Result
	getErr error
}

func (c *mapCache) Get(_ context.Context, query string) ([]Result, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	r, ok := c.m[query]
	return r, ok, nil
}

func (c *mapCache) Set(_ context.Context, query string, results []Result) error {
	c.m[query] = results
	return nil
}

func TestCachedServesNormalizedQuery(t *testing.T) {
	next := &countingSearcher{}
	cache := &mapCache{m: map[string][]Result{}}
	c := NewCached(next, cache, slog.Default())

	first, err := c.Search(context.Background(), "Jazz")
	require.NoError(t, err)
	second, err := c.Search(context.Background(), "  jazz ")
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first, second)
	assert.Contains(t, cache.m, "jazz")
}

func TestCachedFallsThrough(t *testing.T) {
	next := &countingSearcher{}
	cache := &mapCache{m: map[string][]Result{}, getErr: errors.New("down")}
	c := NewCached(next, cache, slog.Default())

	_, err := c.Search(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)
}

func TestCachedDoesNotStoreFailures(t *testing.T) {
	next := &countingSearcher{err: &Error{Query: "a", Err: ErrUnexpectedStatus}}
	cache := &mapCache{m: map[string][]Result{}}
	c := NewCached(next, cache, slog.Default())

	_, err := c.Search(context.Background(), "a")
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Empty(t, cache.m)
}
