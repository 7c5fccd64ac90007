package redis

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/roomsync/internal/search"
)

func newTestRepo(t *testing.T) (*repo, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })
	return NewRepo(rc, time.Minute, slog.Default()), s
}

func TestGetMiss(t *testing.T) {
	r, _ := newTestRepo(t)

	results, ok, err := r.Get(context.Background(), "nothing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, results)
}

func TestSetThenGet(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()
	want := []search.Result{{Title: "a", URL: "https://youtu.be/a", Duration: "4:13"}}

	require.NoError(t, r.Set(ctx, "jazz", want))
	assert.True(t, s.Exists("search:jazz"))
	assert.Equal(t, time.Minute, s.TTL("search:jazz"))

	got, ok, err := r.Get(ctx, "jazz")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestEntriesExpire(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "jazz", []search.Result{}))
	s.FastForward(2 * time.Minute)

	_, ok, err := r.Get(ctx, "jazz")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCorruptEntry(t *testing.T) {
	r, s := newTestRepo(t)
	require.NoError(t, s.Set("search:bad", "{"))

	_, ok, err := r.Get(context.Background(), "bad")
	assert.Error(t, err)
	assert.False(t, ok)
}
