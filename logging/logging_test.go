package logging

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

func newJSONLogger(level LogLevel) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return NewLogger(LogConfig{Level: level, Format: "json", Output: buf}), buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		lines = append(lines, m)
	}
	return lines
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := newJSONLogger(LogLevelWarn)
	ctx := context.Background()

	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	logger.Warn(ctx, "warn message")
	logger.Error(ctx, "error message")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "warn message", lines[0]["message"])
	assert.Equal(t, "error", lines[1]["level"])
}

func TestLogger_Fields(t *testing.T) {
	logger, buf := newJSONLogger(LogLevelDebug)

	logger.WithBucket("media").WithOperation("list").Info(context.Background(), "listed", "count", 3, "error", errors.New("x").Error())

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "media", lines[0]["bucket"])
	assert.Equal(t, "list", lines[0]["operation"])
	assert.Equal(t, float64(3), lines[0]["count"])
	assert.Equal(t, "x", lines[0]["error"])
}

func TestLogger_WithDoesNotMutateParent(t *testing.T) {
	logger, buf := newJSONLogger(LogLevelInfo)
	ctx := context.Background()

	_ = logger.With("child", true)
	logger.Info(ctx, "parent")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	_, ok := lines[0]["child"]
	assert.False(t, ok)
}

func TestLogger_DanglingKey(t *testing.T) {
	logger, buf := newJSONLogger(LogLevelInfo)
	logger.Info(context.Background(), "odd", "lonely")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	v, ok := lines[0]["lonely"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	ctx := context.Background()

	assert.NotPanics(t, func() {
		logger.Info(ctx, "ignored", "k", "v")
		logger.With("k", "v").WithOperation("op").Error(ctx, "ignored")
	})
}

func TestNilLogger(t *testing.T) {
	var logger *Logger
	assert.NotPanics(t, func() {
		logger.Warn(context.Background(), "ignored")
		assert.Nil(t, logger.With("k", "v"))
	})
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LogLevelDebug, false},
		{"INFO", LogLevelInfo, false},
		{"", LogLevelInfo, false},
		{"warning", LogLevelWarn, false},
		{"error", LogLevelError, false},
		{"verbose", LogLevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
