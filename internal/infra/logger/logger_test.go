package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"WARN", zapcore.WarnLevel, false},
		{" error ", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNew_RejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestNew_TeesExtraCores(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	l, err := New(Config{Level: "info", Encoding: "json", Service: "quicklink", Version: "1.2.3"}, core)
	require.NoError(t, err)

	l.Named("store").Info("links hydrated")
	l.Debug("below level")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "links hydrated", entries[0].Message)
	assert.Equal(t, "store", entries[0].LoggerName)
}

func TestEncoderConfig_Console(t *testing.T) {
	enc := encoderConfig("console", false)
	assert.Equal(t, " | ", enc.ConsoleSeparator)

	json := encoderConfig("json", true)
	assert.Empty(t, json.ConsoleSeparator)
}

func TestInitAndSync(t *testing.T) {
	l, err := Init(Config{Level: "info", Encoding: "json"})
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.NoError(t, Sync())
}
