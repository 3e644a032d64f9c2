package shared

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetTraceID(t *testing.T) {
	t.Run("generates an ID when none is supplied", func(t *testing.T) {
		ctx := SetTraceID(context.Background(), "")

		traceID := GetTraceID(ctx)
		assert.Len(t, traceID, 32)
		_, err := hex.DecodeString(traceID)
		assert.NoError(t, err)
	})

	t.Run("keeps a well-formed caller ID", func(t *testing.T) {
		ctx := SetTraceID(context.Background(), "req-20261017-abcdef")
		assert.Equal(t, "req-20261017-abcdef", GetTraceID(ctx))
	})

	t.Run("replaces a malformed caller ID", func(t *testing.T) {
		ctx := SetTraceID(context.Background(), "bad id\nwith newline")
		traceID := GetTraceID(ctx)
		assert.NotEqual(t, "bad id\nwith newline", traceID)
		assert.Len(t, traceID, 32)
	})

	t.Run("parent context is unchanged", func(t *testing.T) {
		parent := context.Background()
		_ = SetTraceID(parent, "")
		assert.Empty(t, GetTraceID(parent))
	})
}

func TestGetTraceID_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), TraceIDKey, 123)
	assert.Empty(t, GetTraceID(ctx))
}

func TestGenerateTraceID_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 500)
	for i := 0; i < 500; i++ {
		id := generateTraceID()
		_, dup := seen[id]
		assert.False(t, dup, "duplicate trace ID %s", id)
		seen[id] = struct{}{}
	}
}

func TestFallbackTraceID(t *testing.T) {
	id := fallbackTraceID()
	assert.Len(t, id, 32)
	_, err := hex.DecodeString(id)
	assert.NoError(t, err)
}
