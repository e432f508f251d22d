package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TALENTLINK_STORAGE_KEY", "0123456789abcdef0123456789abcdef")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Polling.Interval)
	assert.Equal(t, 300*time.Millisecond, cfg.Search.Debounce)
	assert.Equal(t, 20, cfg.Search.Limit)
	assert.Equal(t, 50, cfg.Thread.PageSize)
	assert.Equal(t, "/messages/ws", cfg.Realtime.Path)
	assert.True(t, cfg.Realtime.Enabled)
	assert.False(t, cfg.Log.Development)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TALENTLINK_STORAGE_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("TALENTLINK_API_URL", "https://api.talentlink.test/api/")
	t.Setenv("TALENTLINK_POLL_INTERVAL", "2s")
	t.Setenv("TALENTLINK_WS_ENABLED", "false")
	t.Setenv("TALENTLINK_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.talentlink.test/api", cfg.API.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Polling.Interval)
	assert.False(t, cfg.Realtime.Enabled)
	assert.True(t, cfg.Log.Development)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing storage key", env: map[string]string{"TALENTLINK_STORAGE_KEY": ""}},
		{name: "bad duration", env: map[string]string{"TALENTLINK_POLL_INTERVAL": "soon"}},
		{name: "zero poll interval", env: map[string]string{"TALENTLINK_POLL_INTERVAL": "0s"}},
		{name: "search limit too large", env: map[string]string{"TALENTLINK_SEARCH_LIMIT": "500"}},
		{name: "bad url scheme", env: map[string]string{"TALENTLINK_API_URL": "ftp://example.com"}},
		{name: "bad bool", env: map[string]string{"TALENTLINK_WS_ENABLED": "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TALENTLINK_STORAGE_KEY", "0123456789abcdef0123456789abcdef")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
