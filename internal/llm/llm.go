// Package llm asks the cloud language model to answer a spoken query.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "log/slog"

	openai "github.com/openai/openai-go/v3"
)

const DefaultSystemPrompt = `You are a voice assistant running on a small home device.
Your answer will be read aloud by a speech synthesiser and shown on a tiny display.
Answer in one or two short plain sentences. No markdown, lists or emoji.`

var (
	ErrNoChoices    = errors.New("no choices in response")
	ErrEmptyContent = errors.New("empty message content")
)

type Options struct {
	Model        string
	SystemPrompt string
	MaxTokens    int64 // 0 leaves the cap to the API
}

// Client completes a single query with no conversation history.
type Client struct {
	api openai.Client
	opt Options
}

func New(api openai.Client, opt Options) *Client {
	if opt.Model == "" {
		opt.Model = openai.ChatModelGPT4oMini
	}
	if opt.SystemPrompt == "" {
		opt.SystemPrompt = DefaultSystemPrompt
	}
	return &Client{api: api, opt: opt}
}

func (c *Client) Complete(ctx context.Context, query string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(c.opt.SystemPrompt),
			openai.UserMessage(query),
		},
		Model: c.opt.Model,
	}
	if c.opt.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(c.opt.MaxTokens)
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyContent
	}

	log.Debug("Completed", "model", resp.Model, "tokens", resp.Usage.TotalTokens)

	return content, nil
}
