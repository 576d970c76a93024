package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient calls an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	backoff func(int) time.Duration
	log     *slog.Logger
}

func NewOpenAIClient(apiKey, model, baseURL string, log *slog.Logger) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		backoff: Backoff,
		log:     log,
	}
}

// Model returns the configured model identifier.
func (o *OpenAIClient) Model() string {
	return o.model
}

// Generate sends one prompt, retrying rate limits and server errors.
func (o *OpenAIClient) Generate(ctx context.Context, prompt string, opts Options) (*Response, error) {
	return withRetry(ctx, o.log, ProviderOpenAI, o.backoff, func() (*Response, error) {
		return o.generateOnce(ctx, prompt, opts)
	})
}

func (o *OpenAIClient) generateOnce(ctx context.Context, prompt string, opts Options) (*Response, error) {
	// JSON object response_format would reject top-level arrays, which the
	// enricher and navigator ask for, so JSON mode is a system instruction.
	var messages []openai.ChatCompletionMessage
	if opts.JSONMode {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: jsonSystemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: 0,
	}
	if opts.MaxTokens > 0 {
		req.MaxCompletionTokens = opts.MaxTokens
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("openai returned no choices")
	}
	o.log.Debug("openai response", "finish_reason", resp.Choices[0].FinishReason)

	model := resp.Model
	if model == "" {
		model = o.model
	}
	return &Response{Text: resp.Choices[0].Message.Content, Model: model, Provider: ProviderOpenAI}, nil
}

func classifyOpenAIError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status == http.StatusTooManyRequests || status >= 500 {
		return &RetryableError{StatusCode: status, Message: err.Error()}
	}
	return fmt.Errorf("openai api: %w", err)
}
