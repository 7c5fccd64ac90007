package ctxlogger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextHandlerAddsAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(ContextHandler{Handler: slog.NewJSONHandler(&buf, nil)})

	ctx := AppendCtx(context.Background(), slog.String("room_id", "ABCD"))
	ctx = AppendCtx(ctx, slog.String("conn_id", "c1"))
	logger.With("component", "test").InfoContext(ctx, "hello")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "ABCD", record["room_id"])
	assert.Equal(t, "c1", record["conn_id"])
	assert.Equal(t, "test", record["component"])
}

func TestAppendCtxDoesNotLeakIntoParent(t *testing.T) {
	parent := AppendCtx(context.Background(), slog.String("a", "1"))
	_ = AppendCtx(parent, slog.String("b", "2"))

	attrs := parent.Value(slogFields).([]slog.Attr)
	assert.Len(t, attrs, 1)
}
