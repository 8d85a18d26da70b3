package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sonroyaalmerol/kugybot/internal/ai"
	"github.com/sonroyaalmerol/kugybot/internal/config"
	"github.com/sonroyaalmerol/kugybot/internal/leveling"
	"github.com/sonroyaalmerol/kugybot/internal/logging"
	"github.com/sonroyaalmerol/kugybot/internal/player"
	"github.com/sonroyaalmerol/kugybot/internal/repository"
	"github.com/sonroyaalmerol/kugybot/internal/spotify"
	"github.com/sonroyaalmerol/kugybot/internal/stream"
	"github.com/sonroyaalmerol/kugybot/internal/ui"
	"github.com/sonroyaalmerol/kugybot/internal/voice"
)

const shutdownTimeout = 15 * time.Second

type Bot struct {
	cfg      *config.Config
	repo     *repository.Repo
	levels   *leveling.Service
	chat     *ai.Client
	limiter  *ai.Limiter
	resolver *stream.Resolver
	log      *slog.Logger
}

func NewBot(ctx context.Context, cfg *config.Config, repo *repository.Repo) *Bot {
	var sp *spotify.Client
	if cfg.SpotifyEnabled() {
		sp = spotify.NewClientCredentials(ctx, cfg.SpotifyClientID, cfg.SpotifyClientSecret)
	}
	return &Bot{
		cfg:    cfg,
		repo:   repo,
		levels: leveling.NewService(repo, cfg.XPPerMessage),
		chat: ai.NewClient(ai.Options{
			APIKey:       cfg.OpenRouterAPIKey,
			BaseURL:      cfg.OpenRouterBaseURL,
			Model:        cfg.ChatModel,
			SystemPrompt: cfg.ChatSystemPrompt,
			Timeout:      cfg.ChatTimeout,
		}),
		limiter:  ai.NewLimiter(cfg.ChatRatePerMinute, cfg.ChatBurst),
		resolver: stream.NewResolver(sp, cfg.ResolveTimeout),
		log:      logging.Named("bot"),
	}
}

func (b *Bot) Run(ctx context.Context) error {
	dg, err := discordgo.New("Bot " + b.cfg.DiscordToken)
	if err != nil {
		return err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMembers

	pm := player.NewManager(voice.NewGateway(dg), b.resolver, channelNotifier{s: dg})
	cmd := NewCommandHandler(b.cfg, b.levels, b.chat, b.limiter, pm, b.resolver)

	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.log.Info("connected", "user", s.State.User.Username, "guilds", len(r.Guilds))
	})
	dg.AddHandler(cmd.HandleMessage)
	dg.AddHandler(cmd.HandleMemberJoin)

	go stream.InstallYtdlp(ctx)

	if err := dg.Open(); err != nil {
		return err
	}
	defer dg.Close()

	<-ctx.Done()
	b.log.Info("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := pm.Shutdown(sctx); err != nil {
		b.log.Warn("player shutdown incomplete", "err", err)
	}
	return nil
}

// channelNotifier posts playback events to the text channel a queue was
// started from.
type channelNotifier struct {
	s *discordgo.Session
}

func (n channelNotifier) NowPlaying(channelID string, t player.Track) {
	if _, err := n.s.ChannelMessageSendEmbed(channelID, ui.BuildPlayingEmbed(t)); err != nil {
		slog.Warn("now playing message failed", "channelID", channelID, "err", err)
	}
}

func (n channelNotifier) TrackFailed(channelID string, t player.Track, err error) {
	if _, serr := n.s.ChannelMessageSendEmbed(channelID, ui.BuildTrackFailedEmbed(t)); serr != nil {
		slog.Warn("track failed message failed", "channelID", channelID, "err", serr)
	}
}
