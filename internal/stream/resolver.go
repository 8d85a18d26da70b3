package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/sonroyaalmerol/kugybot/internal/spotify"
	"github.com/sonroyaalmerol/kugybot/internal/utils"
)

// Info describes a resolved media locator.
type Info struct {
	Title       string
	URL         string // locator to hand to Open
	DurationSec int
	IsLive      bool
}

// DurationText renders the track length for display. Live streams have no
// length.
func (i Info) DurationText() string {
	if i.IsLive {
		return utils.PrettyTime(0)
	}
	return utils.PrettyTime(i.DurationSec)
}

// Resolver turns locators into track metadata and playable sources.
type Resolver struct {
	spotify *spotify.Client
	timeout time.Duration
}

// NewResolver builds a resolver. sp may be nil when Spotify is not configured.
func NewResolver(sp *spotify.Client, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Resolver{spotify: sp, timeout: timeout}
}

func (r *Resolver) SpotifyEnabled() bool { return r.spotify != nil }

// Lookup fetches title and duration. Spotify tracks are mapped to a YouTube
// search query that Open can play.
func (r *Resolver) Lookup(ctx context.Context, locator string) (Info, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if IsSpotifyTrack(locator) {
		if r.spotify == nil {
			return Info{}, ErrInvalidURL
		}
		t, err := r.spotify.ResolveTrack(ctx, locator)
		if err != nil {
			return Info{}, fmt.Errorf("spotify track: %w", err)
		}
		return Info{
			Title:       t.SearchQuery(),
			URL:         "ytsearch1:" + t.SearchQuery(),
			DurationSec: t.Duration,
		}, nil
	}

	info, err := YtdlpGetInfo(ctx, locator)
	if err != nil {
		return Info{}, err
	}
	title := info.Title
	if title == "" {
		title = locator
	}
	return Info{
		Title:       title,
		URL:         locator,
		DurationSec: int(info.Duration),
		IsLive:      info.IsLive,
	}, nil
}

// Open starts decoding locator and returns an Opus source. Plain http(s)
// streams that are not YouTube pages are opened directly.
func (r *Resolver) Open(ctx context.Context, locator string) (Source, error) {
	inputURL := locator
	if needsExtraction(locator) {
		rctx, cancel := context.WithTimeout(ctx, r.timeout)
		info, err := YtdlpGetInfo(rctx, locator)
		cancel()
		if err != nil {
			return nil, err
		}
		inputURL = PickMediaURL(info)
		if inputURL == "" {
			return nil, errors.New("no usable media URL")
		}
	}

	headers := ""
	if u, err := url.Parse(inputURL); err == nil && strings.HasSuffix(u.Hostname(), "googlevideo.com") {
		headers = utils.BuildFFmpegHeaders(map[string]string{})
	}

	slog.Debug("opening media", "locator", locator)
	return r.startSource(ctx, inputURL, headers)
}

var startPCM = StartPCMStream

type sourceResult struct {
	src Source
	err error
}

// startSource opens the decoder within the resolve timeout. FFmpeg's open
// does not observe ctx, so a source finishing after the deadline is closed
// in the background.
func (r *Resolver) startSource(ctx context.Context, inputURL, headers string) (Source, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res := make(chan sourceResult, 1)
	go func() {
		// the decode context outlives this call; Close on the source cancels it
		pcm, err := startPCM(context.WithoutCancel(ctx), inputURL, headers, r.timeout)
		if err != nil {
			res <- sourceResult{err: err}
			return
		}
		src, err := NewOpusSource(pcm)
		if err != nil {
			pcm.Close()
			res <- sourceResult{err: err}
			return
		}
		res <- sourceResult{src: src}
	}()

	select {
	case out := <-res:
		return out.src, out.err
	case <-ctx.Done():
		go func() {
			if late := <-res; late.src != nil {
				late.src.Close()
			}
		}()
		return nil, fmt.Errorf("open media: %w", ctx.Err())
	}
}

func needsExtraction(locator string) bool {
	if strings.HasPrefix(locator, "ytsearch") {
		return true
	}
	if !strings.HasPrefix(locator, "http://") && !strings.HasPrefix(locator, "https://") {
		return true
	}
	return isYouTubeHost(locator)
}
