package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sonroyaalmerol/kugybot/internal/utils"
)

// discord rejects messages over 2000 characters; leave room for the mention
const maxReplyLength = 1900

var ErrEmptyResponse = errors.New("chat completion returned no choices")

type Options struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// Client sends single-turn prompts to an OpenAI compatible chat completion
// endpoint (OpenRouter by default).
type Client struct {
	client       *openai.Client
	model        string
	systemPrompt string
	timeout      time.Duration
}

func NewClient(opts Options) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	return &Client{
		client:       openai.NewClientWithConfig(cfg),
		model:        opts.Model,
		systemPrompt: opts.SystemPrompt,
		timeout:      opts.Timeout,
	}
}

// Reply returns the assistant's answer to prompt.
func (c *Client) Reply(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return cleanReply(resp.Choices[0].Message.Content), nil
}

var reThink = regexp.MustCompile(`(?s)<think>.*?</think>`)

func cleanReply(reply string) string {
	reply = reThink.ReplaceAllString(reply, "")
	return utils.Truncate(strings.TrimSpace(reply), maxReplyLength)
}
