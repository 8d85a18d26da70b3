package handlers

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sonroyaalmerol/kugybot/internal/config"
	"github.com/sonroyaalmerol/kugybot/internal/leveling"
	plib "github.com/sonroyaalmerol/kugybot/internal/player"
	"github.com/sonroyaalmerol/kugybot/internal/stream"
	"github.com/sonroyaalmerol/kugybot/internal/ui"
	"github.com/sonroyaalmerol/kugybot/internal/utils"
)

const commandTimeout = 2 * time.Minute

// Playback is the part of the player manager the commands drive.
type Playback interface {
	Enqueue(ctx context.Context, guildID string, t plib.Track, voiceChannelID, textChannelID string) plib.EnqueueResult
	Skip(guildID string) plib.SkipResult
	Stop(guildID string) plib.StopResult
	List(guildID string) []plib.Track
	Active(guildID string) bool
	Radio(ctx context.Context, guildID, voiceChannelID, streamURL string) error
}

type TrackResolver interface {
	SpotifyEnabled() bool
	Lookup(ctx context.Context, locator string) (stream.Info, error)
}

type Chatter interface {
	Reply(ctx context.Context, prompt string) (string, error)
}

type RateLimiter interface {
	Allow(userID string) bool
}

type commandKind int

const (
	cmdNone commandKind = iota
	cmdHelp
	cmdRadio
	cmdRadioIndo
	cmdPlay
	cmdSkip
	cmdStop
	cmdQueue
)

// parseCommand maps message content to a command. Exact commands must match
// the whole message; the rest match by prefix. Chat is decided separately by
// wantsChat since it may accompany another command.
func parseCommand(content string) commandKind {
	switch {
	case content == "!help":
		return cmdHelp
	case content == "!radio":
		return cmdRadio
	case content == "!radioindo":
		return cmdRadioIndo
	case strings.HasPrefix(content, "!play "):
		return cmdPlay
	case strings.HasPrefix(content, "!skip"):
		return cmdSkip
	case strings.HasPrefix(content, "!stop"):
		return cmdStop
	case strings.HasPrefix(content, "!queue"):
		return cmdQueue
	}
	return cmdNone
}

func wantsChat(content string, mentioned bool) bool {
	return mentioned || strings.HasPrefix(content, "!chat ")
}

var reMention = regexp.MustCompile(`<@!?(\d+)>`)

// extractPrompt drops the first user mention and the first "!chat ".
func extractPrompt(content string) string {
	if loc := reMention.FindStringIndex(content); loc != nil {
		content = content[:loc[0]] + content[loc[1]:]
	}
	content = strings.Replace(content, "!chat ", "", 1)
	return strings.TrimSpace(content)
}

// playArgument is the first token after "!play".
func playArgument(content string) string {
	fields := strings.Fields(content)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

func mentions(users []*discordgo.User, userID string) bool {
	for _, u := range users {
		if u != nil && u.ID == userID {
			return true
		}
	}
	return false
}

func enqueueReply(res plib.EnqueueResult, title string) string {
	switch res.Status {
	case plib.Started:
		return ui.MsgPlayStarted
	case plib.Queued:
		return ui.QueuedMessage(utils.EscapeMd(title), res.Position)
	}
	if errors.Is(res.Err, plib.ErrShuttingDown) {
		return ui.MsgPlayError
	}
	return ui.MsgJoinFailed
}

// radioReply returns "" when nothing should be sent.
func radioReply(err error, indo bool) string {
	switch {
	case err == nil && indo:
		return ui.MsgRadioIndo
	case err == nil:
		return ui.MsgRadioLofi
	case errors.Is(err, plib.ErrQueueActive):
		return ui.MsgRadioQueueBusy
	case errors.Is(err, context.Canceled):
		// replaced by a newer radio or stopped while connecting
		return ""
	case indo:
		return ui.MsgRadioIndoFail
	}
	return ui.MsgRadioFailed
}

// request is a message reduced to what the commands need. VoiceChannelID is
// empty when the author is not in a voice channel.
type request struct {
	GuildID        string
	ChannelID      string
	UserID         string
	Username       string
	Content        string
	VoiceChannelID string
}

func (r request) inVoice() bool { return r.VoiceChannelID != "" }

type CommandHandler struct {
	cfg      *config.Config
	levels   *leveling.Service
	chat     Chatter
	limiter  RateLimiter
	pm       Playback
	resolver TrackResolver
}

func NewCommandHandler(cfg *config.Config, levels *leveling.Service, chat Chatter, limiter RateLimiter, pm Playback, resolver TrackResolver) *CommandHandler {
	return &CommandHandler{cfg: cfg, levels: levels, chat: chat, limiter: limiter, pm: pm, resolver: resolver}
}

func (h *CommandHandler) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	send := func(content string) { h.reply(s, m, content) }

	h.awardXP(ctx, m.Author.ID, m.Author.Username, send)

	botID := ""
	if s.State != nil && s.State.User != nil {
		botID = s.State.User.ID
	}

	req := request{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		UserID:    m.Author.ID,
		Username:  m.Author.Username,
		Content:   m.Content,
	}
	req.VoiceChannelID, _ = userInVoice(s, m.GuildID, m.Author.ID)

	typing := func() { _ = s.ChannelTyping(m.ChannelID) }
	h.dispatch(ctx, req, mentions(m.Mentions, botID), typing, send)
}

// dispatch runs the commands a message carries. Help answers alone; a chat
// trigger does not stop a command in the same message.
func (h *CommandHandler) dispatch(ctx context.Context, req request, mentioned bool, typing func(), send func(string)) {
	kind := parseCommand(req.Content)
	if kind == cmdHelp {
		send(ui.HelpText)
		return
	}

	if wantsChat(req.Content, mentioned) {
		send(h.chatReply(ctx, req, typing))
	}

	var msg string
	switch kind {
	case cmdRadio:
		msg = h.radio(ctx, req, h.cfg.RadioLofiURL, false)
	case cmdRadioIndo:
		msg = h.radio(ctx, req, h.cfg.RadioIndoURL, true)
	case cmdPlay:
		msg = h.play(ctx, req)
	case cmdSkip:
		msg = h.skip(req)
	case cmdStop:
		msg = h.stop(req)
	case cmdQueue:
		msg = ui.FormatQueue(h.pm.List(req.GuildID))
	}
	if msg != "" {
		send(msg)
	}
}

func (h *CommandHandler) HandleMemberJoin(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.Member == nil || m.User == nil {
		return
	}

	g, _ := s.State.Guild(m.GuildID)
	if g == nil {
		g, _ = s.Guild(m.GuildID)
	}
	if g != nil && g.SystemChannelID != "" {
		if _, err := s.ChannelMessageSend(g.SystemChannelID, ui.WelcomeMessage(m.User.Username)); err != nil {
			slog.Warn("welcome message failed", "guildID", m.GuildID, "userID", m.User.ID, "err", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := h.levels.Register(ctx, m.User.ID); err != nil {
		slog.Error("register member", "guildID", m.GuildID, "userID", m.User.ID, "err", err)
	}
}

func (h *CommandHandler) awardXP(ctx context.Context, userID, username string, send func(string)) {
	if h.levels == nil {
		return
	}
	res, err := h.levels.AwardMessage(ctx, userID)
	if err != nil {
		slog.Error("award xp", "userID", userID, "err", err)
		return
	}
	if res.LeveledUp {
		slog.Info("level up", "userID", userID, "level", res.User.Level)
		send(ui.LevelUpMessage(username, res.User.Level))
	}
}

func (h *CommandHandler) chatReply(ctx context.Context, req request, typing func()) string {
	if !h.limiter.Allow(req.UserID) {
		return ui.MsgAISlowDown
	}

	typing()
	answer, err := h.chat.Reply(ctx, extractPrompt(req.Content))
	if err != nil {
		slog.Error("ai chat failed", "userID", req.UserID, "err", err)
		return ui.MsgAIFailed
	}
	return "<@" + req.UserID + "> " + answer
}

func (h *CommandHandler) radio(ctx context.Context, req request, streamURL string, indo bool) string {
	if !req.inVoice() {
		return ui.MsgNotInVoice
	}

	err := h.pm.Radio(ctx, req.GuildID, req.VoiceChannelID, streamURL)
	if err != nil && !errors.Is(err, plib.ErrQueueActive) {
		slog.Error("radio failed", "guildID", req.GuildID, "url", streamURL, "err", err)
	}
	return radioReply(err, indo)
}

func (h *CommandHandler) play(ctx context.Context, req request) string {
	if !req.inVoice() {
		slog.Debug("user not in voice", "guildID", req.GuildID, "userID", req.UserID)
		return ui.MsgNotInVoice
	}

	locator, err := stream.ValidateURL(playArgument(req.Content), h.resolver.SpotifyEnabled())
	if err != nil {
		return ui.MsgInvalidURL
	}

	info, err := h.resolver.Lookup(ctx, locator)
	if err != nil {
		slog.Error("lookup failed", "guildID", req.GuildID, "url", locator, "err", err)
		return ui.MsgPlayError
	}

	t := plib.Track{Title: info.Title, URL: info.URL, Duration: info.DurationText()}
	res := h.pm.Enqueue(ctx, req.GuildID, t, req.VoiceChannelID, req.ChannelID)
	if res.Status == plib.Failed {
		slog.Error("enqueue failed", "guildID", req.GuildID, "channelID", req.VoiceChannelID, "err", res.Err)
	}
	return enqueueReply(res, t.Title)
}

func (h *CommandHandler) skip(req request) string {
	if !h.pm.Active(req.GuildID) {
		return ui.MsgNoQueue
	}
	if !req.inVoice() {
		return ui.MsgNotInVoice
	}
	if h.pm.Skip(req.GuildID) == plib.Skipped {
		return ui.MsgSkipped
	}
	return ui.MsgNoQueue
}

func (h *CommandHandler) stop(req request) string {
	if h.pm.Stop(req.GuildID) == plib.Stopped {
		return ui.MsgStopped
	}
	return ui.MsgNoQueue
}

func (h *CommandHandler) reply(s *discordgo.Session, m *discordgo.MessageCreate, content string) {
	if _, err := s.ChannelMessageSendReply(m.ChannelID, content, m.Reference()); err != nil {
		slog.Warn("reply failed", "guildID", m.GuildID, "userID", m.Author.ID, "err", err)
	}
}

func userInVoice(s *discordgo.Session, guildID, userID string) (channelID string, ok bool) {
	if guildID == "" || s.State == nil {
		return "", false
	}
	if vs, err := s.State.VoiceState(guildID, userID); err == nil && vs != nil && vs.ChannelID != "" {
		return vs.ChannelID, true
	}
	g, _ := s.State.Guild(guildID)
	if g == nil {
		return "", false
	}
	for _, vs := range g.VoiceStates {
		if vs.UserID == userID && vs.ChannelID != "" {
			return vs.ChannelID, true
		}
	}
	return "", false
}
