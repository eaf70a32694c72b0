package generator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-forge/collaborators"
	"content-forge/llm"
	"content-forge/models"
)

type scriptedLLM struct {
	text string
	err  error
	last llm.Request
}

func (s *scriptedLLM) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Response{Text: s.text}, nil
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Sure! {\"a\":\"}\"} done", `{"a":"}"}`},
		{"nested", `x {"a":{"b":[1,2]}} y {"c":3}`, `{"a":{"b":[1,2]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.in))
		})
	}
}

func TestStripFence(t *testing.T) {
	assert.Equal(t, "# T\n\n```go\nx\n```", stripFence("```markdown\n# T\n\n```go\nx\n```\n```"))
	assert.Equal(t, "# T", stripFence("  # T \n"))
}

func TestWriterParsesDraft(t *testing.T) {
	fake := &scriptedLLM{text: `{"content":"# Coffee\n\nIntro.","metaDescription":" meta ","slug":"coffee","tags":["brew"],"introParagraph":"Intro."}`}
	w := NewWriter(fake)

	draft, err := w.Write(context.Background(), collaborators.WriteRequest{
		RunID:      "r1",
		Title:      "Coffee",
		Keywords:   []string{"brew", "beans"},
		Research:   models.ResearchData{Data: "notes", Sources: []models.Source{{Title: "S", URL: "https://s"}}},
		CoverImage: models.Image{URL: "https://img", AltText: "cup"},
		RelatedContent: []models.RelatedContent{
			{Title: "Tea", Slug: "tea"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "meta", draft.MetaDescription)
	assert.Equal(t, []string{"brew"}, draft.Tags)
	assert.Equal(t, fake.last.Prompt, draft.OriginalPrompt)
	assert.Contains(t, draft.OriginalPrompt, "Keywords: brew, beans")
	assert.Contains(t, draft.OriginalPrompt, "![cup](https://img)")
	assert.Contains(t, draft.OriginalPrompt, "Tea (/tea)")
	assert.Equal(t, "write", fake.last.Label)
	assert.True(t, fake.last.JSON)
}

func TestWriterRejectsEmptyContent(t *testing.T) {
	_, err := NewWriter(&scriptedLLM{text: `{"content":"  "}`}).Write(context.Background(), collaborators.WriteRequest{})
	assert.Error(t, err)
}

func TestQualityCheckerNormalizesSeverity(t *testing.T) {
	fake := &scriptedLLM{text: `{"isValid":false,"issues":[{"category":"tone","severity":"Critical","description":"too casual"},{"category":"seo","severity":"minor","description":"x"}]}`}
	report, err := NewQualityChecker(fake).CheckQuality(context.Background(), "content", "brief")
	require.NoError(t, err)
	assert.False(t, report.IsValid)
	require.Len(t, report.Issues, 2)
	assert.Equal(t, models.SeverityHigh, report.Issues[0].Severity)
	assert.Equal(t, models.SeverityLow, report.Issues[1].Severity)
	assert.Equal(t, fake.text, report.RawReport)
	assert.Contains(t, fake.last.Prompt, "brief")
}

func TestQualityCheckerPropagatesFailure(t *testing.T) {
	_, err := NewQualityChecker(&scriptedLLM{err: errors.New("quota")}).CheckQuality(context.Background(), "c", "p")
	assert.ErrorContains(t, err, "quota")

	_, err = NewQualityChecker(&scriptedLLM{text: "not json"}).CheckQuality(context.Background(), "c", "p")
	assert.Error(t, err)
}

func TestValidator(t *testing.T) {
	fake := &scriptedLLM{text: `{"isValid":false,"issues":[{"claim":"water boils at 50C","problem":"wrong","correction":"100C"}]}`}
	res, err := NewValidator(fake).Validate(context.Background(), "content")
	require.NoError(t, err)
	assert.True(t, res.Flagged())
	assert.Equal(t, "100C", res.Issues[0].Correction)
}

func TestUpdater(t *testing.T) {
	fake := &scriptedLLM{text: "```markdown\n# Fixed\n```"}
	out, err := NewUpdater(fake).Update(context.Background(), "# Old", "fix it", models.StyleSettings{Tone: "friendly"})
	require.NoError(t, err)
	assert.Equal(t, "# Fixed", out)
	assert.Contains(t, fake.last.Prompt, "Tone: friendly")
	assert.Contains(t, fake.last.Prompt, "fix it")

	_, err = NewUpdater(&scriptedLLM{text: "  "}).Update(context.Background(), "# Old", "fix", models.StyleSettings{})
	assert.Error(t, err)
}
