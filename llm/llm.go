package llm

import (
	"context"
	"fmt"

	"content-forge/config"
)

// Request is one text generation call.
type Request struct {
	// Label names the calling step in ai_logs (write, quality_control, ...).
	Label  string
	RunID  string
	System string
	Prompt string
	// JSON asks the provider for a raw JSON response where supported.
	JSON bool
}

type Response struct {
	Text         string
	ModelName    string
	ModelVersion string
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// NewFromConfig builds the provider client selected by llm.provider.
func NewFromConfig(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "google":
		return NewGeminiClient(ctx, cfg)
	case "openai":
		return NewOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
