package stream

import (
	"errors"
	"regexp"
	"strings"

	"github.com/kkdai/youtube/v2"

	"github.com/sonroyaalmerol/kugybot/internal/spotify"
)

var ErrInvalidURL = errors.New("invalid media url")

const youtubeWatchPrefix = "https://www.youtube.com/watch?v="

var reVideoID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ValidateURL accepts YouTube video URLs or bare IDs, normalizing them to a
// watch URL. Spotify track links pass through unchanged when allowSpotify is set.
func ValidateURL(raw string, allowSpotify bool) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}

	if allowSpotify {
		if typ, _, err := spotify.ParseID(raw); err == nil && typ == "track" {
			return raw, nil
		}
	}

	if strings.Contains(raw, "://") && !isYouTubeHost(raw) {
		return "", ErrInvalidURL
	}

	id, err := youtube.ExtractVideoID(raw)
	if err != nil || !reVideoID.MatchString(id) {
		return "", ErrInvalidURL
	}
	return youtubeWatchPrefix + id, nil
}

func isYouTubeHost(raw string) bool {
	lower := strings.ToLower(raw)
	for _, h := range []string{"://youtube.com/", "://www.youtube.com/", "://m.youtube.com/", "://music.youtube.com/", "://youtu.be/"} {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}

// IsSpotifyTrack reports whether a validated locator needs Spotify resolution.
func IsSpotifyTrack(locator string) bool {
	typ, _, err := spotify.ParseID(locator)
	return err == nil && typ == "track"
}
