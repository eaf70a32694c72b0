package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"content-forge/collaborators"
	"content-forge/llm"
	"content-forge/models"
)

// Writer drafts an article from research notes.
type Writer struct {
	llm llm.Client
}

func NewWriter(c llm.Client) *Writer {
	return &Writer{llm: c}
}

type writeResponse struct {
	Content         string   `json:"content"`
	MetaDescription string   `json:"metaDescription"`
	Slug            string   `json:"slug"`
	Tags            []string `json:"tags"`
	IntroParagraph  string   `json:"introParagraph"`
}

func (w *Writer) Write(ctx context.Context, req collaborators.WriteRequest) (*models.Draft, error) {
	prompt := buildWritePrompt(req)
	resp, err := w.llm.Generate(ctx, llm.Request{
		Label:  "write",
		RunID:  req.RunID,
		System: writerSystemInstruction,
		Prompt: prompt,
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	var out writeResponse
	if err := decodeJSON(resp.Text, &out); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	if strings.TrimSpace(out.Content) == "" {
		return nil, errors.New("write: model returned empty content")
	}
	return &models.Draft{
		Content:         out.Content,
		MetaDescription: strings.TrimSpace(out.MetaDescription),
		Slug:            strings.TrimSpace(out.Slug),
		Tags:            out.Tags,
		IntroParagraph:  strings.TrimSpace(out.IntroParagraph),
		OriginalPrompt:  prompt,
	}, nil
}

func buildWritePrompt(req collaborators.WriteRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", req.Title)
	if len(req.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(req.Keywords, ", "))
	}
	if req.Notes != "" {
		fmt.Fprintf(&b, "Author notes: %s\n", req.Notes)
	}
	writeStyle(&b, req.Style)
	if len(req.Outline) > 0 {
		b.WriteString("\nRequired outline:\n")
		for _, h := range req.Outline {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}
	if !req.CoverImage.Empty() {
		fmt.Fprintf(&b, "\nCover image: ![%s](%s)\n", req.CoverImage.AltText, req.CoverImage.URL)
	}
	if len(req.RelatedContent) > 0 {
		b.WriteString("\nRelated articles to link where relevant:\n")
		for _, rc := range req.RelatedContent {
			fmt.Fprintf(&b, "- %s (/%s)\n", rc.Title, rc.Slug)
		}
	}
	b.WriteString("\nResearch notes:\n")
	b.WriteString(req.Research.Data)
	if len(req.Research.Sources) > 0 {
		b.WriteString("\n\nSources:\n")
		for _, s := range req.Research.Sources {
			fmt.Fprintf(&b, "- %s: %s\n", s.Title, s.URL)
		}
	}
	return b.String()
}

func writeStyle(b *strings.Builder, s models.StyleSettings) {
	if s.Tone != "" {
		fmt.Fprintf(b, "Tone: %s\n", s.Tone)
	}
	if s.Audience != "" {
		fmt.Fprintf(b, "Audience: %s\n", s.Audience)
	}
	if s.Language != "" {
		fmt.Fprintf(b, "Language: %s\n", s.Language)
	}
	if s.TargetWords > 0 {
		fmt.Fprintf(b, "Target length: about %d words\n", s.TargetWords)
	}
}
