package generator

import (
	"context"
	"fmt"

	"content-forge/llm"
	"content-forge/models"
)

// Validator fact-checks a draft.
type Validator struct {
	llm llm.Client
}

func NewValidator(c llm.Client) *Validator {
	return &Validator{llm: c}
}

type validationResponse struct {
	IsValid bool                     `json:"isValid"`
	Issues  []models.ValidationIssue `json:"issues"`
}

func (v *Validator) Validate(ctx context.Context, content string) (*models.ValidationResult, error) {
	resp, err := v.llm.Generate(ctx, llm.Request{
		Label:  "validation",
		System: validationSystemInstruction,
		Prompt: content,
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("validation: %w", err)
	}

	var out validationResponse
	if err := decodeJSON(resp.Text, &out); err != nil {
		return nil, fmt.Errorf("validation: %w", err)
	}
	return &models.ValidationResult{
		IsValid:           out.IsValid,
		Issues:            out.Issues,
		RawValidationText: resp.Text,
	}, nil
}
