package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const DefaultChatPrompt = "You are Kugy AI, a cute, supportive, and humble Indonesian assistant. Always reply warmly and motivatively."

type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN"`
	DataDir      string `env:"DATA_DIR" envDefault:"./data"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // text/json

	OpenRouterAPIKey  string        `env:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL string        `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	ChatModel         string        `env:"CHAT_MODEL" envDefault:"meta-llama/llama-3.1-8b-instruct"`
	ChatSystemPrompt  string        `env:"CHAT_SYSTEM_PROMPT"`
	ChatTimeout       time.Duration `env:"CHAT_TIMEOUT" envDefault:"30s"`
	ChatRatePerMinute float64       `env:"CHAT_RATE_PER_MINUTE" envDefault:"6"`
	ChatBurst         int           `env:"CHAT_BURST" envDefault:"2"`

	XPPerMessage int `env:"XP_PER_MESSAGE" envDefault:"10"`

	RadioLofiURL   string        `env:"RADIO_LOFI_URL" envDefault:"https://lofi.stream.laut.fm/lofi"`
	RadioIndoURL   string        `env:"RADIO_INDO_URL" envDefault:"https://radione.top:8888/dmi"`
	ResolveTimeout time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"30s"`

	SpotifyClientID     string `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`
}

// DBPath is the SQLite file holding leveling data.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "kugybot.db")
}

func (c *Config) SpotifyEnabled() bool {
	return c.SpotifyClientID != "" && c.SpotifyClientSecret != ""
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadDotenv loads variables from path into the process environment.
// A missing file is not an error.
func LoadDotenv(path string) error {
	if path == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.ChatSystemPrompt == "" {
		cfg.ChatSystemPrompt = DefaultChatPrompt
	}
	if cfg.XPPerMessage <= 0 {
		cfg.XPPerMessage = 10
	}

	if cfg.DiscordToken == "" {
		return nil, ErrConfig("DISCORD_TOKEN required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return cfg, nil
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
