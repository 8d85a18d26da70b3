package player

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sonroyaalmerol/kugybot/internal/stream"
)

var silenceFrame = []byte{0xF8, 0xFF, 0xFE}

// fakeSource emits frames every millisecond until finished, closed, or a
// frame limit is reached.
type fakeSource struct {
	limit    int // <= 0 means unlimited
	sent     int
	finish   chan struct{}
	closed   chan struct{}
	finOnce  sync.Once
	closOnce sync.Once
}

func newFakeSource(limit int) *fakeSource {
	return &fakeSource{limit: limit, finish: make(chan struct{}), closed: make(chan struct{})}
}

func (s *fakeSource) ReadOpus() ([]byte, error) {
	if s.limit > 0 && s.sent >= s.limit {
		return nil, io.EOF
	}
	select {
	case <-s.finish:
		return nil, io.EOF
	case <-s.closed:
		return nil, io.ErrClosedPipe
	case <-time.After(time.Millisecond):
	}
	s.sent++
	return silenceFrame, nil
}

func (s *fakeSource) Close() { s.closOnce.Do(func() { close(s.closed) }) }

func (s *fakeSource) Finish() { s.finOnce.Do(func() { close(s.finish) }) }

func (s *fakeSource) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

type fakeResolver struct {
	mu      sync.Mutex
	sources map[string]*fakeSource
	fail    map[string]error
	// hang blocks Open for the URL until the channel closes, ignoring ctx.
	hang  map[string]chan struct{}
	limit int
	opens []string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{sources: map[string]*fakeSource{}, fail: map[string]error{}, hang: map[string]chan struct{}{}}
}

func (r *fakeResolver) Open(ctx context.Context, url string) (stream.Source, error) {
	r.mu.Lock()
	r.opens = append(r.opens, url)
	wait := r.hang[url]
	r.mu.Unlock()
	if wait != nil {
		<-wait
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[url]; err != nil {
		return nil, err
	}
	src := newFakeSource(r.limit)
	r.sources[url] = src
	return src, nil
}

func (r *fakeResolver) source(url string) *fakeSource {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sources[url]
}

func (r *fakeResolver) opened() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.opens...)
}

type fakeConn struct {
	opus         chan []byte
	quit         chan struct{}
	once         sync.Once
	frames       atomic.Int64
	disconnected atomic.Bool
}

func newFakeConn() *fakeConn {
	c := &fakeConn{opus: make(chan []byte), quit: make(chan struct{})}
	go func() {
		for {
			select {
			case <-c.opus:
				c.frames.Add(1)
			case <-c.quit:
				return
			}
		}
	}()
	return c
}

func (c *fakeConn) OpusSend() chan<- []byte { return c.opus }
func (c *fakeConn) Speaking(bool) error     { return nil }
func (c *fakeConn) Disconnect(ctx context.Context) error {
	c.once.Do(func() {
		c.disconnected.Store(true)
		close(c.quit)
	})
	return nil
}

type fakeVoice struct {
	mu    sync.Mutex
	conns []*fakeConn
	err   error
	delay time.Duration
	joins atomic.Int32
}

func (v *fakeVoice) Join(ctx context.Context, guildID, channelID string) (Connection, error) {
	v.joins.Add(1)
	if v.delay > 0 {
		select {
		case <-time.After(v.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if v.err != nil {
		return nil, v.err
	}
	c := newFakeConn()
	v.mu.Lock()
	v.conns = append(v.conns, c)
	v.mu.Unlock()
	return c, nil
}

func (v *fakeVoice) conn(i int) *fakeConn {
	v.mu.Lock()
	defer v.mu.Unlock()
	if i >= len(v.conns) {
		return nil
	}
	return v.conns[i]
}

type fakeNotifier struct {
	mu      sync.Mutex
	playing []string
	failed  []string
}

func (n *fakeNotifier) NowPlaying(channelID string, t Track) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.playing = append(n.playing, t.Title)
}

func (n *fakeNotifier) TrackFailed(channelID string, t Track, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, t.Title)
}

func (n *fakeNotifier) nowPlaying() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.playing...)
}

func (n *fakeNotifier) failures() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.failed...)
}

var errJoin = errors.New("voice join refused")
