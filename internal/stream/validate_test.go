package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	const want = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

	accepted := []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtube.com/watch?v=dQw4w9WgXcQ&t=42s",
		"https://youtu.be/dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ",
		"https://music.youtube.com/watch?v=dQw4w9WgXcQ&list=RDAMVM",
		"  dQw4w9WgXcQ  ",
	}
	for _, in := range accepted {
		t.Run(in, func(t *testing.T) {
			got, err := ValidateURL(in, false)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	rejected := []string{
		"",
		"hello",
		"not a youtube link at all",
		"https://vimeo.com/123456789",
		"https://example.com/watch?v=dQw4w9WgXcQ",
	}
	for _, in := range rejected {
		t.Run("reject "+in, func(t *testing.T) {
			_, err := ValidateURL(in, false)
			assert.ErrorIs(t, err, ErrInvalidURL)
		})
	}
}

func TestValidateURLSpotify(t *testing.T) {
	link := "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC"

	_, err := ValidateURL(link, false)
	assert.ErrorIs(t, err, ErrInvalidURL)

	got, err := ValidateURL(link, true)
	require.NoError(t, err)
	assert.Equal(t, link, got)
	assert.True(t, IsSpotifyTrack(got))

	_, err = ValidateURL("https://open.spotify.com/album/1DFixLWuPkv3KT3TnV35m3", true)
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestNeedsExtraction(t *testing.T) {
	assert.True(t, needsExtraction("https://www.youtube.com/watch?v=dQw4w9WgXcQ"))
	assert.True(t, needsExtraction("ytsearch1:tulus - hati-hati di jalan"))
	assert.False(t, needsExtraction("https://lofi.stream.laut.fm/lofi"))
	assert.False(t, needsExtraction("https://radione.top:8888/dmi"))
}

func TestPickMediaURL(t *testing.T) {
	assert.Equal(t, "https://a", PickMediaURL(&YTDLPInfo{RequestedFormats: []string{"https://a"}, URL: "https://b"}))
	assert.Equal(t, "https://b", PickMediaURL(&YTDLPInfo{URL: "https://b", Formats: []string{"https://c"}}))
	assert.Equal(t, "https://c", PickMediaURL(&YTDLPInfo{Formats: []string{"manifest", "https://c"}}))
	assert.Equal(t, "https://page", PickMediaURL(&YTDLPInfo{WebpageURL: "https://page"}))
}
