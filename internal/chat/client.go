// Package chat provides the adapter for the LM Studio chat-completion backend.
package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// ErrBackend marks any failure talking to the chat backend: transport errors,
// non-2xx responses, and malformed response bodies all collapse into it.
var ErrBackend = errors.New("chat backend error")

// Completer produces a complete reply for a prompt. The SSE framing code in
// the server depends only on this so a true-streaming backend can be swapped
// in without touching event emission.
type Completer interface {
	Complete(ctx context.Context, prompt, model string) (string, error)
}

// Config holds LM Studio client configuration.
type Config struct {
	BaseURL      string        // e.g. "http://127.0.0.1:1234"
	DefaultModel string        // model id used when a request omits one
	Timeout      time.Duration // per-completion timeout
}

// LMStudio is a chat client for an LM Studio-compatible server. It speaks the
// OpenAI wire format via go-openai with a custom base URL.
type LMStudio struct {
	client       *openai.Client
	defaultModel string
	logger       zerolog.Logger
}

// defaultTemperature is fixed for all completions; the service exposes no
// sampling controls.
const defaultTemperature = 0.2

// NewLMStudio creates a client for the configured backend.
func NewLMStudio(cfg Config, logger zerolog.Logger) *LMStudio {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	occfg := openai.DefaultConfig("lm-studio")
	occfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/") + "/v1"
	occfg.HTTPClient = &http.Client{Timeout: timeout}

	return &LMStudio{
		client:       openai.NewClientWithConfig(occfg),
		defaultModel: cfg.DefaultModel,
		logger:       logger.With().Str("component", "chat").Logger(),
	}
}

// Complete performs a single-turn, non-streaming completion and returns the
// trimmed reply text. The prompt is the sole user message; temperature is
// fixed at 0.2. Failures of any kind wrap ErrBackend; there are no retries.
func (c *LMStudio) Complete(ctx context.Context, prompt, model string) (string, error) {
	if model == "" {
		model = c.defaultModel
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: defaultTemperature,
		Stream:      false,
	})
	if err != nil {
		c.logger.Error().Err(err).Str("model", model).Msg("Completion failed")
		return "", fmt.Errorf("%w: %s", ErrBackend, describeAPIError(err))
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: response contained no choices", ErrBackend)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.logger.Debug().
		Str("model", model).
		Int("replyLen", len(text)).
		Dur("elapsed", time.Since(start)).
		Msg("Completion finished")

	return text, nil
}

// Ping probes the backend's model-listing endpoint. A nil return means the
// endpoint answered 200.
func (c *LMStudio) Ping(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("%w: %s", ErrBackend, describeAPIError(err))
	}
	return nil
}

// describeAPIError renders an upstream failure as a short human-readable
// cause, preferring the HTTP status when one was received.
func describeAPIError(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return fmt.Sprintf("HTTP %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return fmt.Sprintf("HTTP %d", reqErr.HTTPStatusCode)
	}
	return err.Error()
}
