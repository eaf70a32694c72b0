package generator

import (
	"context"
	"fmt"
	"strings"

	"content-forge/llm"
	"content-forge/models"
)

// QualityChecker reviews a draft against the prompt it was written from.
type QualityChecker struct {
	llm llm.Client
}

func NewQualityChecker(c llm.Client) *QualityChecker {
	return &QualityChecker{llm: c}
}

type qualityResponse struct {
	IsValid bool                  `json:"isValid"`
	Issues  []models.QualityIssue `json:"issues"`
}

func (q *QualityChecker) CheckQuality(ctx context.Context, content, originalPrompt string) (*models.QualityReport, error) {
	prompt := fmt.Sprintf("Brief the article was written from:\n%s\n\nArticle:\n%s", originalPrompt, content)
	resp, err := q.llm.Generate(ctx, llm.Request{
		Label:  "quality_control",
		System: qualitySystemInstruction,
		Prompt: prompt,
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("quality control: %w", err)
	}

	var out qualityResponse
	if err := decodeJSON(resp.Text, &out); err != nil {
		return nil, fmt.Errorf("quality control: %w", err)
	}
	for i := range out.Issues {
		out.Issues[i].Severity = normalizeSeverity(out.Issues[i].Severity)
	}
	return &models.QualityReport{
		IsValid:   out.IsValid,
		Issues:    out.Issues,
		RawReport: resp.Text,
	}, nil
}

func normalizeSeverity(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "critical", "major":
		return models.SeverityHigh
	case "low", "minor", "info":
		return models.SeverityLow
	default:
		return models.SeverityMedium
	}
}
