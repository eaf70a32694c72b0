package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-forge/models"
	"content-forge/quota"
)

type stubClient struct {
	resp *Response
	err  error
	n    int
}

func (s *stubClient) Generate(context.Context, Request) (*Response, error) {
	s.n++
	return s.resp, s.err
}

type memoryLogs struct {
	entries []models.AILog
	err     error
}

func (m *memoryLogs) Insert(_ context.Context, log models.AILog) error {
	m.entries = append(m.entries, log)
	return m.err
}

func TestLoggedRecordsUsage(t *testing.T) {
	next := &stubClient{resp: &Response{Text: "ok", ModelName: "m", InputTokens: 3, OutputTokens: 4, TotalTokens: 7}}
	logs := &memoryLogs{}
	c := NewLogged(next, logs, nil)

	resp, err := c.Generate(context.Background(), Request{Label: "write", RunID: "r1", System: "sys", Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	require.Len(t, logs.entries, 1)
	e := logs.entries[0]
	assert.Equal(t, "write", e.Label)
	assert.Equal(t, "r1", e.RunID)
	assert.Equal(t, int64(7), e.TotalTokens)
	assert.Equal(t, "sys\n\nhi", e.InputPrompt)
	assert.Nil(t, e.ErrorMessage)
}

func TestLoggedRecordsErrors(t *testing.T) {
	logs := &memoryLogs{err: errors.New("insert failed")}
	c := NewLogged(&stubClient{err: errors.New("provider down")}, logs, nil)

	_, err := c.Generate(context.Background(), Request{Label: "validate"})
	assert.EqualError(t, err, "provider down")
	require.Len(t, logs.entries, 1)
	require.NotNil(t, logs.entries[0].ErrorMessage)
	assert.Equal(t, "provider down", *logs.entries[0].ErrorMessage)
}

func TestLoggedStopsAtQuota(t *testing.T) {
	next := &stubClient{resp: &Response{Text: "ok"}}
	c := NewLogged(next, nil, quota.NewLimiter(0, 1))

	_, err := c.Generate(context.Background(), Request{})
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, quota.ErrDailyLimitReached)
	assert.Equal(t, 1, next.n)
}
