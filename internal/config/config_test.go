package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndKeyPools(t *testing.T) {
	t.Setenv("NEWS_FEED_DIR", t.TempDir())
	t.Setenv("NEWS_API_KEY", "key1")
	t.Setenv("NEWS_API_KEY_2", "")
	t.Setenv("NEWS_API_KEY_3", "key3")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"key1", "key3"}, cfg.NewsAPIKeys)
	assert.Empty(t, cfg.GeminiAPIKeys)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)
}
