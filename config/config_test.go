package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ao3rss/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ao3rss.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[server]
listen = ":8080"

[archive]
timeout = "5s"

[stream]
keepalive_interval = "250ms"

[feed]
sanitize = false
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, 5*time.Second, cfg.Archive.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Stream.KeepAliveInterval)
	assert.False(t, cfg.Feed.Sanitize)

	// Untouched keys keep their defaults
	assert.Equal(t, config.DefaultBaseURL, cfg.Archive.BaseURL)
	assert.Equal(t, config.DefaultUserAgent, cfg.Archive.UserAgent)
	assert.Equal(t, config.DefaultGenerator, cfg.Feed.Generator)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{
			name:     "malformed toml",
			contents: "[server\nlisten = 1",
		},
		{
			name:     "zero timeout",
			contents: "[archive]\ntimeout = \"0s\"",
		},
		{
			name:     "negative keep-alive interval",
			contents: "[stream]\nkeepalive_interval = \"-1s\"",
		},
		{
			name:     "empty base url",
			contents: "[archive]\nbase_url = \"\"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadConfig(writeConfig(t, tt.contents))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, config.Default().Validate())
}
