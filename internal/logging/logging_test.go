package logging

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("dev", slog.LevelError))
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug", slog.LevelError))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info", slog.LevelError))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning", slog.LevelError))
	assert.Equal(t, slog.LevelError, ParseLevel("prod", slog.LevelInfo))
	assert.Equal(t, slog.LevelInfo, ParseLevel("", slog.LevelInfo))
	assert.Equal(t, slog.LevelWarn, ParseLevel("loud", slog.LevelWarn))
}
