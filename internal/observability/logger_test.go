package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/multichat/config"
	"github.com/upb/multichat/middleware"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.ObservabilityConfig
		expectError bool
	}{
		{name: "json info", cfg: config.ObservabilityConfig{LogLevel: "info", LogFormat: "json"}},
		{name: "text debug", cfg: config.ObservabilityConfig{LogLevel: "DEBUG", LogFormat: "text"}},
		{name: "default format", cfg: config.ObservabilityConfig{LogLevel: "warn"}},
		{name: "bad level", cfg: config.ObservabilityConfig{LogLevel: "loud"}, expectError: true},
		{name: "bad format", cfg: config.ObservabilityConfig{LogLevel: "info", LogFormat: "xml"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.cfg)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestNewLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(config.ObservabilityConfig{LogLevel: "info", LogFormat: "json"}, &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	ctx := middleware.WithRequestID(context.Background(), "req-7")
	WithRequest(ctx, logger).Info("chat turn saved")
	require.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "chat turn saved", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "req-7", entry["request_id"])
}

func TestWithRequest_NoID(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(config.ObservabilityConfig{LogLevel: "info"}, &buf)
	require.NoError(t, err)

	assert.Same(t, logger, WithRequest(context.Background(), logger))
}
