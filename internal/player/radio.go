package player

import (
	"context"
	"log/slog"
)

// radioSession is a live stream occupying the guild's player outside the
// queue.
type radioSession struct {
	guildID string
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func (rs *radioSession) stop() { rs.cancel() }

// Radio joins voiceChannelID and plays streamURL until the stream ends or the
// session is stopped. It is refused with ErrQueueActive while a queue session
// exists; an existing radio in the guild is replaced.
func (m *Manager) Radio(ctx context.Context, guildID, voiceChannelID, streamURL string) error {
	for {
		m.mu.Lock()
		if m.shutdown {
			m.mu.Unlock()
			return ErrShuttingDown
		}
		if gq := m.queues[guildID]; gq != nil {
			gq.mu.Lock()
			closing := gq.closed
			gq.mu.Unlock()
			m.mu.Unlock()
			if !closing {
				return ErrQueueActive
			}
			select {
			case <-gq.done:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		rctx, cancel := context.WithCancel(m.ctx)
		rs := &radioSession{guildID: guildID, ctx: rctx, cancel: cancel, done: make(chan struct{})}
		old := m.radios[guildID]
		m.radios[guildID] = rs
		m.wg.Add(1)
		m.mu.Unlock()

		if old != nil {
			old.stop()
			<-old.done
		}
		return m.startRadio(ctx, rs, voiceChannelID, streamURL)
	}
}

func (m *Manager) startRadio(ctx context.Context, rs *radioSession, voiceChannelID, streamURL string) error {
	var conn Connection
	fail := func(err error) error {
		if conn != nil {
			m.disconnect(rs.guildID, conn)
		}
		m.releaseRadio(rs)
		return err
	}

	// joining aborts when either the caller or the session gives up
	jctx, cancelJoin := context.WithCancel(ctx)
	stopAfter := context.AfterFunc(rs.ctx, cancelJoin)
	conn, err := m.voice.Join(jctx, rs.guildID, voiceChannelID)
	stopAfter()
	cancelJoin()
	if err != nil {
		return fail(err)
	}

	src, err := m.resolver.Open(rs.ctx, streamURL)
	if err != nil {
		return fail(err)
	}
	if err := rs.ctx.Err(); err != nil {
		src.Close()
		return fail(err)
	}

	p := newAudioPlayer(rs.guildID, 0, src, conn, nil)
	p.Start()
	slog.Info("radio started", "guildID", rs.guildID, "url", streamURL)

	go func() {
		select {
		case <-p.Done():
		case <-rs.ctx.Done():
			p.Stop()
			<-p.Done()
		}
		m.disconnect(rs.guildID, conn)
		m.releaseRadio(rs)
		slog.Info("radio ended", "guildID", rs.guildID)
	}()
	return nil
}

func (m *Manager) releaseRadio(rs *radioSession) {
	m.mu.Lock()
	if m.radios[rs.guildID] == rs {
		delete(m.radios, rs.guildID)
	}
	m.mu.Unlock()
	rs.cancel()
	close(rs.done)
	m.wg.Done()
}

func (m *Manager) disconnect(guildID string, conn Connection) {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if err := conn.Disconnect(ctx); err != nil {
		slog.Warn("voice disconnect failed", "guildID", guildID, "err", err)
	}
}

// RadioActive reports whether the guild is playing a radio stream.
func (m *Manager) RadioActive(guildID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.radios[guildID] != nil
}
