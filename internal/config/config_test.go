package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigRequiresToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("DATA_DIR", t.TempDir())

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Equal(t, ErrConfig("DISCORD_TOKEN required"), err)
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DATA_DIR", dir)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.OpenRouterBaseURL)
	assert.Equal(t, "meta-llama/llama-3.1-8b-instruct", cfg.ChatModel)
	assert.Equal(t, DefaultChatPrompt, cfg.ChatSystemPrompt)
	assert.Equal(t, 10, cfg.XPPerMessage)
	assert.Equal(t, 30*time.Second, cfg.ResolveTimeout)
	assert.Equal(t, "https://lofi.stream.laut.fm/lofi", cfg.RadioLofiURL)
	assert.Equal(t, "https://radione.top:8888/dmi", cfg.RadioIndoURL)
	assert.False(t, cfg.SpotifyEnabled())
	assert.Equal(t, filepath.Join(dir, "kugybot.db"), cfg.DBPath())

	_, err = os.Stat(dir)
	assert.NoError(t, err, "data dir should be created")
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("XP_PER_MESSAGE", "25")
	t.Setenv("CHAT_TIMEOUT", "5s")
	t.Setenv("SPOTIFY_CLIENT_ID", "id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.XPPerMessage)
	assert.Equal(t, 5*time.Second, cfg.ChatTimeout)
	assert.True(t, cfg.SpotifyEnabled())
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		cfg := &Config{LogLevel: in}
		assert.Equal(t, want, cfg.SlogLevel(), in)
	}
}

func TestLoadDotenvMissingFile(t *testing.T) {
	assert.NoError(t, LoadDotenv(filepath.Join(t.TempDir(), "nope.env")))
}

func TestLoadDotenv(t *testing.T) {
	p := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(p, []byte("KUGYBOT_TEST_VAR=hello\n"), 0o600))
	t.Setenv("KUGYBOT_TEST_VAR", "")
	require.NoError(t, os.Unsetenv("KUGYBOT_TEST_VAR"))

	require.NoError(t, LoadDotenv(p))
	assert.Equal(t, "hello", os.Getenv("KUGYBOT_TEST_VAR"))
}
