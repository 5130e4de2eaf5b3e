package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/sashabaranov/go-openai"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "gpt-4"

// OpenAICompleter implements [Completer] over an OpenAI-compatible chat completions API.
type OpenAICompleter struct {
	client *openai.Client
	model  string
	logger *log.Logger
}

// NewOpenAICompleter creates a completer for the given key. baseURL and model fall back to the OpenAI defaults.
// httpClient may be nil.
func NewOpenAICompleter(apiKey, baseURL, model string, httpClient *http.Client, logger *log.Logger) (*OpenAICompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: openai api_key", shared.ErrMissingCredentials)
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = log.Default()
	}

	return &OpenAICompleter{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger.WithPrefix("completion"),
	}, nil
}

// NewOpenAICompleterFromConfig builds a completer from the [credentials.openai] section.
func NewOpenAICompleterFromConfig(cfg *shared.Config, logger *log.Logger) (*OpenAICompleter, error) {
	c := cfg.Credentials.OpenAI
	return NewOpenAICompleter(c.APIKey, c.BaseURL, c.Model, nil, logger)
}

// Complete sends one chat completion request and returns the first choice's content.
func (c *OpenAICompleter) Complete(ctx context.Context, system, user string, temperature float32) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: temperature,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			c.logger.Error("completion rejected", "status", apiErr.HTTPStatusCode, "message", apiErr.Message)
			return "", fmt.Errorf("%w: status %d: %s", shared.ErrUpstreamUnavailable, apiErr.HTTPStatusCode, apiErr.Message)
		}
		c.logger.Error("completion request failed", "error", err)
		return "", fmt.Errorf("%w: %v", shared.ErrUpstreamUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in completion", shared.ErrUpstreamFormat)
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: no content received", shared.ErrUpstreamFormat)
	}

	c.logger.Debug("completion received", "model", c.model, "length", len(content))
	return content, nil
}
