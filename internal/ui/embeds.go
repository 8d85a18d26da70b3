package ui

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/sonroyaalmerol/kugybot/internal/player"
	"github.com/sonroyaalmerol/kugybot/internal/utils"
)

const (
	colorPlaying = 0x006400
	colorError   = 0x992222
	// discord caps message content at 2000 characters
	maxMessageLength = 2000
)

func songLink(t player.Track) string {
	title := utils.EscapeMd(t.Title)
	if !strings.HasPrefix(t.URL, "http") {
		return title
	}
	return fmt.Sprintf("[%s](%s)", title, t.URL)
}

func BuildPlayingEmbed(t player.Track) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🎶 Sedang Diputar",
		Description: fmt.Sprintf("**%s**\n`[ %s ]`", songLink(t), t.Duration),
		Color:       colorPlaying,
	}
}

func BuildTrackFailedEmbed(t player.Track) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "❌ Gagal Memutar",
		Description: fmt.Sprintf("**%s** dilewati, lanjut ke lagu berikutnya.", songLink(t)),
		Color:       colorError,
	}
}

// FormatQueue renders tracks as a numbered list, head first. Lines that do
// not fit in one message are summarized.
func FormatQueue(tracks []player.Track) string {
	if len(tracks) == 0 {
		return MsgQueueEmpty
	}

	var b strings.Builder
	b.WriteString("📃 **Antrian Lagu:**\n")
	for i, t := range tracks {
		line := fmt.Sprintf("`%d.` %s `[ %s ]`", i+1, utils.EscapeMd(t.Title), t.Duration)
		if i == 0 {
			line += " ▶️"
		}
		line += "\n"

		rest := len(tracks) - i
		footer := fmt.Sprintf("…dan %d lagu lainnya", rest)
		if b.Len()+len(line)+len(footer) > maxMessageLength {
			b.WriteString(footer)
			return b.String()
		}
		b.WriteString(line)
	}
	return strings.TrimRight(b.String(), "\n")
}
