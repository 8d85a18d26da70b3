package utils

import (
	"fmt"
	"maps"
	"math/rand/v2"
	"net/http"
	"slices"
	"strings"
)

func RandomUserAgent() string {
	const minMajor = 132
	const maxMajor = 140

	major := rand.IntN(maxMajor-minMajor+1) + minMajor
	return fmt.Sprintf(
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.0.0 Safari/537.36",
		major,
	)
}

var youtubeDefaults = map[string]string{
	"Referer":         "https://www.youtube.com/",
	"Origin":          "https://www.youtube.com",
	"Accept":          "*/*",
	"Accept-Language": "en-US,en;q=0.9",
	"Connection":      "keep-alive",
}

// BuildFFmpegHeaders returns a CRLF-joined "Key: Value" block for the
// AVFormat "headers" option. Missing browser-like defaults are filled in.
func BuildFFmpegHeaders(extra map[string]string) string {
	h := make(map[string]string, len(youtubeDefaults)+len(extra)+1)
	maps.Copy(h, youtubeDefaults)
	h["User-Agent"] = RandomUserAgent()
	for k, v := range extra {
		h[http.CanonicalHeaderKey(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}

	var b strings.Builder
	for _, k := range slices.Sorted(maps.Keys(h)) {
		fmt.Fprintf(&b, "%s: %s\r\n", k, h[k])
	}
	return b.String()
}
