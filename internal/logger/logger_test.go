package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	t.Run("Should return logger from context when present", func(t *testing.T) {
		expected := New(TestConfig())
		ctx := ContextWithLogger(context.Background(), expected)
		assert.Same(t, expected, FromContext(ctx))
	})

	t.Run("Should return default logger when context carries another type", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), LoggerCtxKey, "not a logger")
		l := FromContext(ctx)
		require.NotNil(t, l)
		assert.Same(t, Default(), l)
	})
}

func TestNew(t *testing.T) {
	t.Run("Should write JSON records when enabled", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(&Config{Level: InfoLevel, Output: &buf, JSON: true, TimeFormat: "15:04:05"})
		l.Info("batch upserted", "batch", 3)
		out := buf.String()
		assert.Contains(t, out, "batch upserted")
		assert.Contains(t, out, `"batch":3`)
	})

	t.Run("Should drop records below the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(&Config{Level: WarnLevel, Output: &buf})
		l.Info("hidden")
		l.Warn("shown")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})
}

func TestLogLevel_ToCharmlogLevel(t *testing.T) {
	cases := map[LogLevel]int{
		DebugLevel:    -4,
		InfoLevel:     0,
		WarnLevel:     4,
		ErrorLevel:    8,
		DisabledLevel: 1000,
		"unknown":     0,
	}
	for level, want := range cases {
		assert.Equal(t, want, int(level.ToCharmlogLevel()), "level %s", level)
	}
}
