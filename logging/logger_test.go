package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"":        LevelInfo,
		"Warning": LevelWarn,
		"error":   LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewLogger_SlogLevelVar(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: LevelWarn, Format: "json", Output: &buf})

	logger.Info("hidden", "k", "v")
	assert.Empty(t, buf.String())

	logger.(LevelSetter).SetLevel(LevelDebug)
	logger.Debug("shown", "agent", "Bob")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"agent":"Bob"`)
}

func TestNewLogger_Zap(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: LevelInfo, Format: "json", Backend: "zap", Output: &buf})

	logger.Debug("hidden")
	logger.Warn("careful", "port", 50001)
	require.NoError(t, logger.(*ZapAdapter).Sync())

	out := buf.String()
	assert.False(t, strings.Contains(out, "hidden"))
	assert.Contains(t, out, `"msg":"careful"`)
	assert.Contains(t, out, `"port":50001`)

	logger.(LevelSetter).SetLevel(LevelError)
	buf.Reset()
	logger.Warn("dropped")
	assert.Empty(t, buf.String())
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = NoOpLogger{}
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
}
