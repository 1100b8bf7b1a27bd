package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func readEntries(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		entries = append(entries, e)
	}
	require.NoError(t, sc.Err())
	return entries
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{"error", []string{"error"}},
		{"warn", []string{"warn", "error"}},
		{"info", []string{"info", "warn", "error"}},
		{"", []string{"info", "warn", "error"}},
		{"DEBUG", []string{"debug", "info", "warn", "error"}},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "atlas.log")
			require.NoError(t, Setup(Options{Level: tt.level, File: path}))

			Log.Debug("debug message")
			Log.Info("info message")
			Log.Warn("warn message")
			Log.Error("error message")
			Sync()

			var levels []string
			for _, e := range readEntries(t, path) {
				levels = append(levels, e["level"].(string))
			}
			assert.Equal(t, tt.want, levels)
		})
	}
}

func TestUnknownLevel(t *testing.T) {
	require.NoError(t, Setup(Options{Level: "warn"}))
	before := Log
	assert.Error(t, Setup(Options{Level: "bogus", Console: &bytes.Buffer{}}))
	assert.Same(t, before, Log, "a failed setup keeps the previous logger")
	assert.Error(t, Init("verbose", ""))
}

func TestStructuredFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "atlas.log")
	require.NoError(t, Setup(Options{Level: "info", File: path}))
	Log.Named("pack").Info("page composed", zap.String("type", "baseColor"), zap.Int("page", 1))
	Sync()

	entries := readEntries(t, path)
	require.Len(t, entries, 1)
	assert.Equal(t, "page composed", entries[0]["msg"])
	assert.Equal(t, "pack", entries[0]["logger"])
	assert.Equal(t, "baseColor", entries[0]["type"])
	assert.EqualValues(t, 1, entries[0]["page"])
	assert.Contains(t, entries[0], "caller")
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Setup(Options{Level: "info", Console: &buf}))
	Log.Named("unpack").Debug("hidden")
	Log.Named("unpack").Warn("sprite skipped", zap.String("sprite", "wood.png"))
	Sync()

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN unpack sprite skipped")
	assert.Contains(t, out, `{"sprite": "wood.png"}`)
}

func TestSetupWithoutOutputs(t *testing.T) {
	require.NoError(t, Setup(Options{Level: "debug"}))
	assert.False(t, Log.Core().Enabled(zapcore.ErrorLevel))

	require.NoError(t, Init("warn", ""))
	assert.False(t, Log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Log.Core().Enabled(zapcore.WarnLevel))
}
