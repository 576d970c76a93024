// Package llm is the inference collaborator used by tree building, navigation
// and graph sync. It provides provider clients behind a single Generator
// interface and tolerant JSON decoding of model output.
package llm

import "context"

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Options tunes a single generation call.
type Options struct {
	// JSONMode asks the provider for JSON-only output. Callers still decode
	// defensively; JSONMode is a hint, not a guarantee.
	JSONMode  bool
	MaxTokens int
}

// Response is a successful generation. Text may still be empty or malformed.
type Response struct {
	Text     string
	Model    string
	Provider string
}

// Generator is the inference boundary. Implementations must honor ctx.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (*Response, error)
}

const jsonSystemPrompt = "You are a precise document-structure assistant. Respond with valid JSON only, with no prose and no code fences."
