package logging

import (
	"os"
	"path/filepath"
	"testing"

	"fairway/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testApp = config.AppConfig{Name: "fairway-test", Environment: "test", Version: "1.0.0"}

func TestNewLoggerOutputs(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.LoggingConfig
		wantErr    bool
		wantCloser bool
	}{
		{name: "default stdout", cfg: config.LoggingConfig{Level: "info"}},
		{name: "stderr", cfg: config.LoggingConfig{Level: "debug", Output: "stderr"}},
		{name: "console format", cfg: config.LoggingConfig{Level: "warn", Output: "stdout", Format: "console"}},
		{name: "file without path", cfg: config.LoggingConfig{Output: "file"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, closer, err := New(tt.cfg, testApp)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
			if tt.wantCloser {
				assert.NotNil(t, closer)
			} else {
				assert.Nil(t, closer)
			}
		})
	}
}

func TestNewLoggerFileSink(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "fairway.log")

	logger, closer, err := New(config.LoggingConfig{Level: "info", Output: "file", FilePath: logPath}, testApp)
	require.NoError(t, err)
	require.NotNil(t, closer)

	logger.Info().Str("bay", "Bay 1").Msg("maintenance started")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"app":"fairway-test"`)
	assert.Contains(t, string(data), "maintenance started")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
		{" ERROR ", zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), "level %q", tt.in)
	}
}
