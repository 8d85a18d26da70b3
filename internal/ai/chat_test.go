package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, body string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(url string) *Client {
	return NewClient(Options{
		APIKey:       "secret",
		BaseURL:      url + "/",
		Model:        "test-model",
		SystemPrompt: "be nice",
		Timeout:      5 * time.Second,
	})
}

func TestReply(t *testing.T) {
	var req map[string]any
	srv := newTestServer(t, http.StatusOK,
		`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  Halo kak! "},"finish_reason":"stop"}]}`,
		&req)

	got, err := newTestClient(srv.URL).Reply(context.Background(), "hai")
	require.NoError(t, err)
	assert.Equal(t, "Halo kak!", got)

	assert.Equal(t, "test-model", req["model"])
	msgs, ok := req["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "be nice", msgs[0].(map[string]any)["content"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
	assert.Equal(t, "hai", msgs[1].(map[string]any)["content"])
}

func TestReplyEmptyChoices(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"id":"1","choices":[]}`, nil)
	_, err := newTestClient(srv.URL).Reply(context.Background(), "hai")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestReplyHTTPError(t *testing.T) {
	srv := newTestServer(t, http.StatusUnauthorized, `{"error":{"message":"bad key","type":"auth"}}`, nil)
	_, err := newTestClient(srv.URL).Reply(context.Background(), "hai")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat completion")
}

func TestCleanReply(t *testing.T) {
	assert.Equal(t, "answer", cleanReply("<think>\nhmm\n</think>\n answer "))

	long := strings.Repeat("a", maxReplyLength+50)
	got := cleanReply(long)
	assert.Equal(t, maxReplyLength, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestLimiter(t *testing.T) {
	l := NewLimiter(1, 2)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "buckets are per user")

	unlimited := NewLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.True(t, unlimited.Allow("a"))
	}
}

func TestLimiterEvictsIdleBuckets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewLimiter(6, 2)
	l.now = func() time.Time { return now }
	require.Equal(t, time.Minute, l.idle)

	for i := 0; i < 50; i++ {
		l.Allow(fmt.Sprintf("user-%d", i))
	}
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.Len(t, l.buckets, 51)

	now = now.Add(30 * time.Second)
	assert.True(t, l.Allow("b"))
	assert.Len(t, l.buckets, 52, "nothing is idle yet")

	now = now.Add(time.Minute)
	assert.True(t, l.Allow("a"), "a refilled while idle")
	assert.Len(t, l.buckets, 1, "only the caller's bucket remains")
	assert.Contains(t, l.buckets, "a")
}

func TestLimiterIdleCoversRefill(t *testing.T) {
	l := NewLimiter(1, 5)
	assert.Equal(t, 5*time.Minute, l.idle)
}

