package auth_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirableedge/go-auth"
)

func decodeLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), buf.String())
	buf.Reset()
	return line
}

func TestZerologLogger_KeyValues(t *testing.T) {
	var buf bytes.Buffer
	var logger auth.Logger = auth.NewZerologLogger(zerolog.New(&buf))

	logger.Info("user registered", "user_id", "42", "attempt", 2, "error", errors.New("boom"))

	line := decodeLogLine(t, &buf)
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "user registered", line["message"])
	assert.Equal(t, "42", line["user_id"])
	assert.Equal(t, float64(2), line["attempt"])
	assert.Equal(t, "boom", line["error"])
}

func TestZerologLogger_Printf(t *testing.T) {
	var buf bytes.Buffer
	var logger auth.Logger = auth.NewZerologLogger(zerolog.New(&buf))

	logger.Warn("sink failed: %v", errors.New("queue down"))

	line := decodeLogLine(t, &buf)
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "sink failed: queue down", line["message"])
}

func TestZerologLogger_DanglingKey(t *testing.T) {
	var buf bytes.Buffer
	var logger auth.Logger = auth.NewZerologLogger(zerolog.New(&buf))
	logger.Error("odd", "lonely")

	line := decodeLogLine(t, &buf)
	assert.Equal(t, "lonely", line["extra"])
}

func TestNewLevelLogger(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}

	for level, want := range tests {
		logger := auth.NewLevelLogger("test", level, "json")
		assert.Equal(t, want, logger.Zerolog().GetLevel(), level)
	}
}

func TestNewDefaultLogger_SkipsDebug(t *testing.T) {
	logger := auth.NewDefaultLogger("auth")
	assert.Equal(t, zerolog.InfoLevel, logger.Zerolog().GetLevel())
}
