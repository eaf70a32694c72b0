package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"content-forge/config"
)

type GeminiClient struct {
	client    *genai.Client
	modelName string
}

func NewGeminiClient(ctx context.Context, cfg config.LLMConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{client: client, modelName: cfg.ModelName}, nil
}

func (g *GeminiClient) Generate(ctx context.Context, req Request) (*Response, error) {
	genCfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		genCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.JSON {
		genCfg.ResponseMIMEType = "application/json"
	}

	result, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(req.Prompt), genCfg)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, errors.New("gemini: empty result")
	}

	resp := &Response{
		Text:         result.Text(),
		ModelName:    g.modelName,
		ModelVersion: result.ModelVersion,
	}
	if result.UsageMetadata != nil {
		resp.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
		resp.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
		resp.TotalTokens = int64(result.UsageMetadata.TotalTokenCount)
	}
	if resp.Text == "" {
		return resp, errors.New("gemini: empty response text")
	}
	return resp, nil
}
