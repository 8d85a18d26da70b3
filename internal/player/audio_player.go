package player

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sonroyaalmerol/kugybot/internal/stream"
)

const (
	bufferPackets    = 100
	minBufferPackets = 20
	prebufferTimeout = 5 * time.Second
	sendTimeout      = 200 * time.Millisecond
)

// AudioPlayer streams one source to a voice connection. It is created per
// track and reports itself on ended when playback stops for any reason.
type AudioPlayer struct {
	guildID string
	seq     uint64
	src     stream.Source
	conn    Connection
	buf     *opusBuffer

	ctx    context.Context
	cancel context.CancelFunc

	ended    chan<- *AudioPlayer
	done     chan struct{}
	stopOnce sync.Once
}

func newAudioPlayer(guildID string, seq uint64, src stream.Source, conn Connection, ended chan<- *AudioPlayer) *AudioPlayer {
	ctx, cancel := context.WithCancel(context.Background())
	return &AudioPlayer{
		guildID: guildID,
		seq:     seq,
		src:     src,
		conn:    conn,
		buf:     newOpusBuffer(bufferPackets),
		ctx:     ctx,
		cancel:  cancel,
		ended:   ended,
		done:    make(chan struct{}),
	}
}

func (p *AudioPlayer) Start() {
	go p.produce()
	go p.consume()
}

// Stop interrupts playback. The ended signal still fires.
func (p *AudioPlayer) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		p.buf.Close()
	})
}

// Done is closed after the player released its source.
func (p *AudioPlayer) Done() <-chan struct{} { return p.done }

func (p *AudioPlayer) produce() {
	for {
		pkt, err := p.src.ReadOpus()
		if err != nil {
			if !errors.Is(err, io.EOF) && p.ctx.Err() == nil {
				slog.Warn("audio source failed", "guildID", p.guildID, "err", err)
			}
			p.buf.MarkEOS()
			return
		}
		if len(pkt) == 0 {
			continue
		}
		if !p.buf.PushWait(p.ctx, pkt) {
			return
		}
	}
}

func (p *AudioPlayer) consume() {
	defer func() {
		p.Stop()
		p.src.Close()
		_ = p.conn.Speaking(false)
		close(p.done)
		if p.ended != nil {
			p.ended <- p
		}
	}()

	if !p.buf.WaitFill(p.ctx, minBufferPackets, prebufferTimeout) {
		return
	}

	_ = p.conn.Speaking(true)
	send := p.conn.OpusSend()
	dropped := 0

	for {
		pkt, ok := p.buf.Pop()
		if !ok {
			return
		}

		timer := time.NewTimer(sendTimeout)
		select {
		case <-p.ctx.Done():
			timer.Stop()
			return
		case send <- pkt:
			dropped = 0
		case <-timer.C:
			dropped++
			slog.Debug("dropped packet", "guildID", p.guildID, "consecutive", dropped)
		}
		timer.Stop()
	}
}
