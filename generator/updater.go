package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"content-forge/llm"
	"content-forge/models"
)

// Updater revises a draft according to an issue report.
type Updater struct {
	llm llm.Client
}

func NewUpdater(c llm.Client) *Updater {
	return &Updater{llm: c}
}

func (u *Updater) Update(ctx context.Context, content, issueReport string, style models.StyleSettings) (string, error) {
	var b strings.Builder
	writeStyle(&b, style)
	fmt.Fprintf(&b, "\nIssue report:\n%s\n\nArticle:\n%s", issueReport, content)

	resp, err := u.llm.Generate(ctx, llm.Request{
		Label:  "update",
		System: updateSystemInstruction,
		Prompt: b.String(),
	})
	if err != nil {
		return "", fmt.Errorf("update: %w", err)
	}
	updated := stripFence(resp.Text)
	if updated == "" {
		return "", errors.New("update: model returned empty content")
	}
	return updated, nil
}
