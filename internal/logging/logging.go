package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

const loggerNameKey = "logger"

var discordgoLevels = map[int]slog.Level{
	discordgo.LogDebug:         slog.LevelDebug,
	discordgo.LogError:         slog.LevelError,
	discordgo.LogWarning:       slog.LevelWarn,
	discordgo.LogInformational: slog.LevelInfo,
}

// NewHandler returns a tint handler for "text" and a JSON handler for "json".
func NewHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
	})
}

// Setup installs the handler as the slog default and routes discordgo's
// internal logging through it.
func Setup(w io.Writer, format string, level slog.Level) *slog.Logger {
	h := NewHandler(w, format, level)
	logger := slog.New(h)
	slog.SetDefault(logger)

	discordgo.Logger = DiscordgoLogger(context.Background(), h)
	discordgo.Logging = discordgoLevelFor(level)
	return logger
}

// Named returns a child of the default logger tagged with a component name.
func Named(name string) *slog.Logger {
	return slog.Default().With(loggerNameKey, name)
}

func DiscordgoLogger(ctx context.Context, handler slog.Handler) func(msgL int, caller int, format string, args ...any) {
	log := slog.New(handler).With(loggerNameKey, "discordgo")
	return func(msgL int, _ int, format string, args ...any) {
		level, ok := discordgoLevels[msgL]
		if !ok {
			level = slog.LevelInfo
		}
		log.LogAttrs(ctx, level, strings.ReplaceAll(fmt.Sprintf(format, args...), "\n", ""))
	}
}

func discordgoLevelFor(level slog.Level) int {
	switch {
	case level <= slog.LevelDebug:
		return discordgo.LogDebug
	case level <= slog.LevelInfo:
		// discordgo is chatty at info
		return discordgo.LogWarning
	case level <= slog.LevelWarn:
		return discordgo.LogWarning
	default:
		return discordgo.LogError
	}
}
