package logger

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":  zapcore.DebugLevel,
		"info":   zapcore.InfoLevel,
		" WARN ": zapcore.WarnLevel,
		"error":  zapcore.ErrorLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	for _, s := range []string{"unknown", "fatal", ""} {
		_, ok := ParseLogLevel(s)
		require.False(t, ok, s)
	}
}

// TestContextLogger checks that scoped loggers travel through the context.
func TestContextLogger(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())

	ctx = WithName(ctx, "poller")
	ctx = WithKV(ctx, "tick", 3)

	WarnKV(ctx, "Fetch failed", "error", "boom")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "poller", entries[0].LoggerName)
	require.Equal(t, "Fetch failed", entries[0].Message)
	require.Equal(t, int64(3), entries[0].ContextMap()["tick"])
}

// TestFromContext_FallsBackToGlobal ensures a bare context yields the global logger.
func TestFromContext_FallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
}

// TestConfigure_JSONFile routes the global logger to a JSON file and back.
//
//nolint:paralleltest // Replaces the global logger.
func TestConfigure_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.log")

	closeLog, err := Configure("debug", FormatJSON, path)
	require.NoError(t, err)

	defer SetLevel(zapcore.InfoLevel)

	DebugKV(WithName(context.Background(), "store"), "Alerts merged", "fresh", 2)
	require.NoError(t, closeLog())

	contents, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(contents)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "debug", entry["level"])
	require.Equal(t, "store", entry["logger"])
	require.Equal(t, "Alerts merged", entry["message"])
	require.InDelta(t, 2, entry["fresh"], 0)
}

// TestConfigure_UnknownFormat rejects formats other than console and json.
//
//nolint:paralleltest // Replaces the global logger.
func TestConfigure_UnknownFormat(t *testing.T) {
	_, err := Configure("info", "xml", "")
	require.ErrorIs(t, err, errUnknownFormat)
}
