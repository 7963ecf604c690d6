// Package openai implements summarize.Summarizer on an OpenAI-compatible
// chat-completions endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/couchcryptid/disaster-event-graph/internal/domain"
	"github.com/couchcryptid/disaster-event-graph/internal/summarize"
)

const (
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 200

	systemPrompt = "You summarize recent natural disaster reports for an operations audience. " +
		"Answer in three to five plain sentences. Mention the most severe events and the countries affected. " +
		"Do not invent events that are not listed."
)

// Options configures the summarizer.
type Options struct {
	APIKey string
	// BaseURL overrides the API endpoint; empty uses the OpenAI default.
	BaseURL string
	Model   string
	Timeout time.Duration
	// MaxRetries bounds SDK retries; negative keeps the SDK default.
	MaxRetries int
}

// Summarizer asks a chat model for a short summary of recent events.
type Summarizer struct {
	client *openaisdk.Client
	model  string
	logger *slog.Logger
}

// New creates a summarizer. APIKey is required.
func New(opts Options, logger *slog.Logger) (*Summarizer, error) {
	if opts.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.Timeout))
	}
	if opts.MaxRetries >= 0 {
		reqOpts = append(reqOpts, option.WithMaxRetries(opts.MaxRetries))
	}
	model := opts.Model
	if model == "" {
		model = defaultModel
	}
	client := openaisdk.NewClient(reqOpts...)
	return &Summarizer{client: &client, model: model, logger: logger}, nil
}

// Summarize implements summarize.Summarizer.
func (s *Summarizer) Summarize(ctx context.Context, events []domain.StoredEvent, maxEvents int) (string, error) {
	if len(events) == 0 {
		return summarize.NoEvents, nil
	}
	lines := summarize.Lines(events, maxEvents)

	resp, err := s.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(systemPrompt),
			openaisdk.UserMessage(strings.Join(lines, "\n")),
		},
		MaxTokens: openaisdk.Int(defaultMaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat: no choices returned")
	}

	s.logger.Debug("summary generated",
		"model", resp.Model,
		"events", len(lines),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
