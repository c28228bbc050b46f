package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeWithWriter(t *testing.T) {
	t.Cleanup(func() { Initialize("info", "text") })

	t.Run("JSONWithLevel", func(t *testing.T) {
		var buf bytes.Buffer
		InitializeWithWriter("warn", "json", &buf)

		Info("hidden")
		Warn("shown", "orderID", 7)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)

		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
		assert.Equal(t, "shown", entry["msg"])
		assert.Equal(t, float64(7), entry["orderID"])
	})

	t.Run("ContextAttributes", func(t *testing.T) {
		var buf bytes.Buffer
		InitializeWithWriter("debug", "text", &buf)

		ctx := NewContext(context.Background(), "request_id", "abc")
		ctx = NewContext(ctx, "route", "/orders")
		InfoContext(ctx, "handled")

		out := buf.String()
		assert.Contains(t, out, "request_id=abc")
		assert.Contains(t, out, "route=/orders")
	})

	t.Run("ExitMethodWithError", func(t *testing.T) {
		var buf bytes.Buffer
		InitializeWithWriter("error", "text", &buf)

		EnterMethod("svc.Do")
		ExitMethodWithError("svc.Do", errors.New("boom"))

		out := buf.String()
		assert.NotContains(t, out, "event=enter")
		assert.Contains(t, out, "error=boom")
		assert.Contains(t, out, "method=svc.Do")
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("Debug").String())
	assert.Equal(t, "WARN", parseLevel("warning").String())
	assert.Equal(t, "ERROR", parseLevel("error").String())
	assert.Equal(t, "INFO", parseLevel("bogus").String())
}
