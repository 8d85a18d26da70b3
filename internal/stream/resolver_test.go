package stream

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInfoDurationText(t *testing.T) {
	assert.Equal(t, "3:05", Info{DurationSec: 185}.DurationText())
	assert.Equal(t, "LIVE", Info{DurationSec: 185, IsLive: true}.DurationText())
	assert.Equal(t, "LIVE", Info{}.DurationText())
}

func TestInstallYtdlpIgnoresCallerDeadline(t *testing.T) {
	prevFn := installFn
	installOnce = sync.Once{}
	t.Cleanup(func() {
		installFn = prevFn
		installOnce = sync.Once{}
	})

	type key struct{}
	var (
		hadDeadline bool
		ctxErr      error
		value       any
		calls       int
	)
	installFn = func(ctx context.Context) error {
		calls++
		_, hadDeadline = ctx.Deadline()
		time.Sleep(20 * time.Millisecond)
		ctxErr = ctx.Err()
		value = ctx.Value(key{})
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithValue(context.Background(), key{}, "v"), time.Millisecond)
	defer cancel()
	InstallYtdlp(ctx)
	InstallYtdlp(context.Background())

	assert.Equal(t, 1, calls)
	assert.False(t, hadDeadline)
	assert.NoError(t, ctxErr)
	assert.Equal(t, "v", value)
}

func TestNewResolverDefaultTimeout(t *testing.T) {
	r := NewResolver(nil, 0)
	assert.Equal(t, 30*time.Second, r.timeout)
	assert.False(t, r.SpotifyEnabled())
}

func TestOpenBoundedByTimeout(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	prev := startPCM
	t.Cleanup(func() {
		close(release)
		startPCM = prev
	})
	startPCM = func(ctx context.Context, inputURL, headers string, ioTimeout time.Duration) (*PCMStreamer, error) {
		assert.Equal(t, "https://radio.example/stream", inputURL)
		assert.Empty(t, headers)
		assert.Equal(t, 50*time.Millisecond, ioTimeout)
		close(entered)
		<-release
		return nil, context.Canceled
	}

	r := NewResolver(nil, 50*time.Millisecond)
	start := time.Now()
	src, err := r.Open(context.Background(), "https://radio.example/stream")
	assert.Nil(t, src)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	<-entered
}

func TestOpenHonoursCancel(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	prev := startPCM
	t.Cleanup(func() {
		close(release)
		startPCM = prev
	})
	startPCM = func(context.Context, string, string, time.Duration) (*PCMStreamer, error) {
		close(entered)
		<-release
		return nil, context.Canceled
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := NewResolver(nil, time.Minute).Open(ctx, "https://radio.example/stream")
	assert.ErrorIs(t, err, context.Canceled)
	<-entered
}
