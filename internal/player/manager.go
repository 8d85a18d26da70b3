package player

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sonroyaalmerol/kugybot/internal/stream"
)

const disconnectTimeout = 5 * time.Second

var errOpenAbandoned = errors.New("track open abandoned")

// Manager owns the per-guild playback sessions. Lock order is m.mu before
// GuildQueue.mu.
type Manager struct {
	voice    Voice
	resolver Resolver
	notify   Notifier

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	seq    atomic.Uint64

	mu       sync.Mutex
	queues   map[string]*GuildQueue
	radios   map[string]*radioSession
	shutdown bool
}

func NewManager(voice Voice, resolver Resolver, notify Notifier) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		voice:    voice,
		resolver: resolver,
		notify:   notify,
		ctx:      ctx,
		cancel:   cancel,
		queues:   make(map[string]*GuildQueue),
		radios:   make(map[string]*radioSession),
	}
}

// Enqueue appends t to the guild's queue, starting a session when none
// exists. A new session joins voiceChannelID and any radio in the guild is
// stopped first.
func (m *Manager) Enqueue(ctx context.Context, guildID string, t Track, voiceChannelID, textChannelID string) EnqueueResult {
	e := entry{Track: t, seq: m.seq.Add(1)}

	for {
		m.mu.Lock()
		if m.shutdown {
			m.mu.Unlock()
			return EnqueueResult{Status: Failed, Err: ErrShuttingDown}
		}

		if gq := m.queues[guildID]; gq != nil {
			gq.mu.Lock()
			if !gq.closed {
				gq.songs = append(gq.songs, e)
				pos := len(gq.songs)
				gq.mu.Unlock()
				m.mu.Unlock()
				return EnqueueResult{Status: Queued, Position: pos}
			}
			gq.mu.Unlock()
			m.mu.Unlock()

			// previous session is still disconnecting
			select {
			case <-gq.done:
				continue
			case <-ctx.Done():
				return EnqueueResult{Status: Failed, Err: ctx.Err()}
			}
		}

		gq := newGuildQueue(guildID, voiceChannelID, textChannelID, e)
		m.queues[guildID] = gq
		radio := m.radios[guildID]
		m.wg.Add(1)
		m.mu.Unlock()

		return m.start(ctx, gq, radio)
	}
}

func (m *Manager) start(ctx context.Context, gq *GuildQueue, radio *radioSession) EnqueueResult {
	if radio != nil {
		radio.stop()
		<-radio.done
	}

	conn, err := m.voice.Join(ctx, gq.GuildID, gq.VoiceChannelID)
	if err != nil {
		slog.Warn("voice join failed", "guildID", gq.GuildID, "channelID", gq.VoiceChannelID, "err", err)
		gq.mu.Lock()
		gq.closed = true
		gq.songs = nil
		gq.mu.Unlock()
		m.remove(gq)
		m.wg.Done()
		return EnqueueResult{Status: Failed, Err: err}
	}

	gq.conn = conn
	go m.run(gq)
	return EnqueueResult{Status: Started}
}

// run is the guild's event loop. It alone touches gq.player.
func (m *Manager) run(gq *GuildQueue) {
	defer m.wg.Done()

	if !m.advance(gq) {
		return
	}
	for {
		select {
		case p := <-gq.ended:
			if p != gq.player {
				continue
			}
			gq.player = nil
			gq.dropHead(p.seq)
			if !m.advance(gq) {
				return
			}
		case <-gq.interrupt:
			if gq.player != nil {
				gq.player.Stop()
			}
		}
	}
}

// advance starts the head track. Heads that cannot be opened are dropped.
// It returns false after tearing the session down.
func (m *Manager) advance(gq *GuildQueue) bool {
	for {
		head, ok := gq.head()
		if !ok {
			if gq.closeIfEmpty() {
				m.teardown(gq)
				return false
			}
			continue
		}

		src, err := m.open(gq, head)
		if errors.Is(err, errOpenAbandoned) {
			// skipped, stopped or shut down while opening
			gq.dropHead(head.seq)
			continue
		}
		if err != nil {
			if m.ctx.Err() == nil {
				slog.Error("failed to open track", "guildID", gq.GuildID, "url", head.URL, "err", err)
				m.notify.TrackFailed(gq.TextChannelID, head.Track, err)
			}
			gq.dropHead(head.seq)
			m.drainInterrupt(gq)
			continue
		}

		if !gq.isHead(head.seq) {
			// skipped or stopped while opening
			src.Close()
			m.drainInterrupt(gq)
			continue
		}

		p := newAudioPlayer(gq.GuildID, head.seq, src, gq.conn, gq.ended)
		gq.player = p
		p.Start()
		slog.Info("now playing", "guildID", gq.GuildID, "title", head.Title)
		m.notify.NowPlaying(gq.TextChannelID, head.Track)
		return true
	}
}

type openResult struct {
	src stream.Source
	err error
}

// open acquires the head's source. An interrupt or shutdown abandons the
// attempt so a stalled resolver cannot wedge the loop; a source that arrives
// afterwards is closed.
func (m *Manager) open(gq *GuildQueue, head entry) (stream.Source, error) {
	ctx, cancel := context.WithCancel(m.ctx)
	defer cancel()

	res := make(chan openResult, 1)
	go func() {
		src, err := m.resolver.Open(ctx, head.URL)
		res <- openResult{src: src, err: err}
	}()

	select {
	case r := <-res:
		return r.src, r.err
	case <-gq.interrupt:
	case <-m.ctx.Done():
	}

	slog.Debug("abandoning track open", "guildID", gq.GuildID, "url", head.URL)
	go func() {
		if r := <-res; r.src != nil {
			r.src.Close()
		}
	}()
	return nil, errOpenAbandoned
}

func (m *Manager) drainInterrupt(gq *GuildQueue) {
	select {
	case <-gq.interrupt:
	default:
	}
}

func (m *Manager) teardown(gq *GuildQueue) {
	if gq.conn != nil {
		ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
		if err := gq.conn.Disconnect(ctx); err != nil {
			slog.Warn("voice disconnect failed", "guildID", gq.GuildID, "err", err)
		}
		cancel()
	}
	m.remove(gq)
	slog.Info("queue session ended", "guildID", gq.GuildID)
}

func (m *Manager) remove(gq *GuildQueue) {
	m.mu.Lock()
	if m.queues[gq.GuildID] == gq {
		delete(m.queues, gq.GuildID)
	}
	m.mu.Unlock()
	close(gq.done)
}

// activeLocked returns the guild's queue unless it is absent or closing.
// Caller must hold m.mu.
func (m *Manager) activeLocked(guildID string) *GuildQueue {
	gq := m.queues[guildID]
	if gq == nil {
		return nil
	}
	gq.mu.Lock()
	defer gq.mu.Unlock()
	if gq.closed {
		return nil
	}
	return gq
}

// Skip stops the current track; the loop then plays the next one or ends
// the session.
func (m *Manager) Skip(guildID string) SkipResult {
	m.mu.Lock()
	gq := m.activeLocked(guildID)
	m.mu.Unlock()
	if gq == nil {
		return SkipNoQueue
	}
	gq.signal()
	return Skipped
}

// Stop empties the queue and stops the current track, which ends the
// session. A radio session in the guild is stopped as well.
func (m *Manager) Stop(guildID string) StopResult {
	m.mu.Lock()
	if gq := m.queues[guildID]; gq != nil {
		gq.mu.Lock()
		if !gq.closed {
			gq.songs = nil
			gq.mu.Unlock()
			m.mu.Unlock()
			gq.signal()
			return Stopped
		}
		gq.mu.Unlock()
	}
	rs := m.radios[guildID]
	m.mu.Unlock()

	if rs != nil {
		rs.stop()
		return Stopped
	}
	return StopNoQueue
}

// List returns the queued tracks in play order, head first. It is nil when
// the guild has no session.
func (m *Manager) List(guildID string) []Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	gq := m.queues[guildID]
	if gq == nil {
		return nil
	}
	return gq.tracks()
}

// Active reports whether the guild has a queue session.
func (m *Manager) Active(guildID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeLocked(guildID) != nil
}

// Shutdown stops every session and waits for them to disconnect.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.shutdown = true
	for _, gq := range m.queues {
		gq.mu.Lock()
		gq.songs = nil
		gq.mu.Unlock()
		gq.signal()
	}
	for _, rs := range m.radios {
		rs.stop()
	}
	m.mu.Unlock()
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
