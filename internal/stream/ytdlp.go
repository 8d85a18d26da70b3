package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	ytdlp "github.com/lrstanley/go-ytdlp"
)

// YTDLPInfo is the subset of yt-dlp's JSON dump the bot uses.
type YTDLPInfo struct {
	Title      string
	Duration   float64
	IsLive     bool
	WebpageURL string
	URL        string

	RequestedFormats []string
	Formats          []string
}

var (
	installOnce sync.Once
	installFn   = func(ctx context.Context) error {
		_, err := ytdlp.Install(ctx, nil)
		return err
	}
)

// InstallYtdlp downloads yt-dlp once per process. The download keeps ctx's
// values but not its deadline, so a short lookup timeout cannot cut it off.
func InstallYtdlp(ctx context.Context) {
	installOnce.Do(func() {
		if err := installFn(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("yt-dlp install failed, relying on PATH", "err", err)
		}
	})
}

func str(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func num(ptr *float64) float64 {
	if ptr == nil {
		return 0
	}
	return *ptr
}

func formatURLs(fs []*ytdlp.ExtractedFormat) []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		if f == nil || f.URL == "" {
			continue
		}
		out = append(out, f.URL)
	}
	return out
}

func fromExtracted(ext *ytdlp.ExtractedInfo) *YTDLPInfo {
	info := &YTDLPInfo{
		Title:            str(ext.Title),
		Duration:         num(ext.Duration),
		WebpageURL:       str(ext.WebpageURL),
		URL:              str(ext.URL),
		RequestedFormats: formatURLs(ext.RequestedFormats),
		Formats:          formatURLs(ext.Formats),
	}
	if ext.IsLive != nil {
		info.IsLive = *ext.IsLive
	}
	return info
}

// YtdlpGetInfo runs yt-dlp -J with an audio-first format selector. Search
// queries ("ytsearch1:...") yield the first entry.
func YtdlpGetInfo(ctx context.Context, target string) (*YTDLPInfo, error) {
	InstallYtdlp(ctx)

	cmd := ytdlp.New().
		Format("ba[acodec^=opus]/ba[ext=m4a]/bestaudio/best").
		NoCheckCertificates().
		NoPlaylist().
		DumpJSON()

	res, err := cmd.Run(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp run: %w", err)
	}

	infos, err := res.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("parse yt-dlp json: %w", err)
	}
	if len(infos) == 0 || infos[0] == nil {
		return nil, errors.New("parse yt-dlp json: no info returned")
	}

	ext := infos[0]
	for _, e := range ext.Entries {
		if e != nil {
			return fromExtracted(e), nil
		}
	}
	return fromExtracted(ext), nil
}

// PickMediaURL returns the best playable URL: requested formats first, then
// the top-level url, then any format, then the page itself.
func PickMediaURL(info *YTDLPInfo) string {
	for _, u := range info.RequestedFormats {
		if strings.HasPrefix(u, "http") {
			return u
		}
	}
	if strings.HasPrefix(info.URL, "http") {
		return info.URL
	}
	for _, u := range info.Formats {
		if strings.HasPrefix(u, "http") {
			return u
		}
	}
	return info.WebpageURL
}
