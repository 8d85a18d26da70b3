package player

import (
	"context"
	"errors"

	"github.com/sonroyaalmerol/kugybot/internal/stream"
)

var (
	ErrQueueActive  = errors.New("a queue session is active")
	ErrShuttingDown = errors.New("player manager is shutting down")
)

const DefaultVolume = 100

type Track struct {
	Title    string
	URL      string
	Duration string // display only
}

// entry is a queued track tagged with a sequence number so completion
// signals can be matched to the track that produced them.
type entry struct {
	Track
	seq uint64
}

type EnqueueStatus int

const (
	Started EnqueueStatus = iota
	Queued
	Failed
)

type EnqueueResult struct {
	Status   EnqueueStatus
	Position int   // 1-based length of the queue after a Queued append
	Err      error // set when Failed
}

type SkipResult int

const (
	SkipNoQueue SkipResult = iota
	Skipped
)

type StopResult int

const (
	StopNoQueue StopResult = iota
	Stopped
)

// Connection is an established voice session.
type Connection interface {
	OpusSend() chan<- []byte
	Speaking(bool) error
	Disconnect(ctx context.Context) error
}

type Voice interface {
	Join(ctx context.Context, guildID, channelID string) (Connection, error)
}

type Resolver interface {
	Open(ctx context.Context, url string) (stream.Source, error)
}

// Notifier posts playback status to a text channel.
type Notifier interface {
	NowPlaying(channelID string, t Track)
	TrackFailed(channelID string, t Track, err error)
}
