package spotify

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

var (
	ErrNotSpotify  = errors.New("not a spotify URL")
	ErrUnsupported = errors.New("unsupported spotify link")
)

type Track struct {
	Name     string
	Artist   string
	Duration int // seconds
}

// SearchQuery is the text used to find the track on YouTube.
func (t Track) SearchQuery() string {
	if t.Artist == "" {
		return t.Name
	}
	return t.Artist + " - " + t.Name
}

type Client struct {
	raw *spotify.Client
}

func NewClientCredentials(ctx context.Context, clientID, clientSecret string) *Client {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	cl := spotify.New(cfg.Client(ctx), spotify.WithRetry(true))
	return &Client{raw: cl}
}

// ParseID splits a spotify URI ("spotify:track:ID") or open.spotify.com link
// into its resource type and ID.
func ParseID(raw string) (typ string, id spotify.ID, err error) {
	if strings.HasPrefix(raw, "spotify:") {
		parts := strings.Split(raw, ":")
		if len(parts) == 3 && parts[2] != "" {
			return parts[1], spotify.ID(parts[2]), nil
		}
		return "", "", ErrUnsupported
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", ErrNotSpotify
	}
	if u.Host != "open.spotify.com" && u.Host != "www.open.spotify.com" {
		return "", "", ErrNotSpotify
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	// localized links look like /intl-id/track/ID
	if len(parts) > 0 && strings.HasPrefix(parts[0], "intl-") {
		parts = parts[1:]
	}
	if len(parts) < 2 || parts[1] == "" {
		return "", "", ErrUnsupported
	}
	switch parts[0] {
	case "album", "playlist", "track", "artist":
		return parts[0], spotify.ID(parts[1]), nil
	}
	return "", "", ErrUnsupported
}

func (c *Client) GetTrack(ctx context.Context, id spotify.ID) (Track, error) {
	t, err := c.raw.GetTrack(ctx, id)
	if err != nil {
		return Track{}, err
	}
	artist := ""
	if len(t.Artists) > 0 {
		artist = t.Artists[0].Name
	}
	return Track{Name: t.Name, Artist: artist, Duration: int(t.Duration) / 1000}, nil
}

// ResolveTrack looks up a track link and returns its metadata.
func (c *Client) ResolveTrack(ctx context.Context, link string) (Track, error) {
	typ, id, err := ParseID(link)
	if err != nil {
		return Track{}, err
	}
	if typ != "track" {
		return Track{}, ErrUnsupported
	}
	return c.GetTrack(ctx, id)
}
