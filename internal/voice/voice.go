package voice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sonroyaalmerol/kugybot/internal/player"
)

const disconnectTimeout = 3 * time.Second

type joinFunc func(guildID, channelID string, mute, deaf bool) (*discordgo.VoiceConnection, error)

// Gateway joins voice channels over a discordgo session.
type Gateway struct {
	join  joinFunc
	leave func(vc *discordgo.VoiceConnection) error
}

func NewGateway(s *discordgo.Session) *Gateway {
	return &Gateway{join: s.ChannelVoiceJoin, leave: leave}
}

type joinResult struct {
	vc  *discordgo.VoiceConnection
	err error
}

// Join connects self-deafened to channelID. discordgo's join cannot be
// cancelled, so when ctx ends first the connection that arrives later is
// torn down in the background.
func (g *Gateway) Join(ctx context.Context, guildID, channelID string) (player.Connection, error) {
	res := make(chan joinResult, 1)
	go func() {
		vc, err := g.join(guildID, channelID, false, true)
		res <- joinResult{vc: vc, err: err}
	}()

	select {
	case r := <-res:
		if r.err != nil {
			return nil, fmt.Errorf("join voice channel: %w", r.err)
		}
		ensureChannels(r.vc)
		return g.connection(guildID, r.vc), nil
	case <-ctx.Done():
		go func() {
			r := <-res
			if r.err != nil || r.vc == nil {
				return
			}
			slog.Debug("dropping voice connection joined after cancel", "guildID", guildID)
			_ = g.connection(guildID, r.vc).Disconnect(context.Background())
		}()
		return nil, ctx.Err()
	}
}

// ensureChannels makes sure Kill() does not close nil channels.
func ensureChannels(vc *discordgo.VoiceConnection) {
	if vc == nil {
		return
	}
	if vc.OpusSend == nil {
		vc.OpusSend = make(chan []byte, 2)
	}
	if vc.OpusRecv == nil {
		vc.OpusRecv = make(chan *discordgo.Packet, 2)
	}
}

func leave(vc *discordgo.VoiceConnection) error {
	ensureChannels(vc)
	_ = vc.Speaking(false)
	return vc.Disconnect()
}

func (g *Gateway) connection(guildID string, vc *discordgo.VoiceConnection) *Connection {
	return &Connection{vc: vc, guildID: guildID, leave: func() error { return g.leave(vc) }}
}

type Connection struct {
	vc      *discordgo.VoiceConnection
	guildID string
	leave   func() error
}

func (c *Connection) OpusSend() chan<- []byte { return c.vc.OpusSend }

func (c *Connection) Speaking(b bool) error { return c.vc.Speaking(b) }

// Disconnect leaves the channel, waiting at most disconnectTimeout or until
// ctx ends. Panics inside discordgo's teardown are recovered and logged.
func (c *Connection) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, disconnectTimeout)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("voice disconnect panic recovered", "panic", r, "guildID", c.guildID)
				errc <- fmt.Errorf("voice disconnect panic: %v", r)
			}
		}()
		errc <- c.leave()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		slog.Warn("voice disconnect timed out", "guildID", c.guildID)
		return ctx.Err()
	}
}
