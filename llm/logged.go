package llm

import (
	"context"
	"fmt"
	"time"

	"content-forge/config"
	"content-forge/metrics"
	"content-forge/models"
	"content-forge/quota"
	"content-forge/trace"
)

// LogWriter persists one ai_logs entry.
type LogWriter interface {
	Insert(ctx context.Context, log models.AILog) error
}

// Logged wraps a Client with the call quota and an ai_logs record per call.
type Logged struct {
	next    Client
	logs    LogWriter
	limiter *quota.Limiter
}

func NewLogged(next Client, logs LogWriter, limiter *quota.Limiter) *Logged {
	return &Logged{next: next, logs: logs, limiter: limiter}
}

func (l *Logged) Generate(ctx context.Context, req Request) (*Response, error) {
	if req.RunID == "" {
		req.RunID = trace.RunIDFromContext(ctx)
	}
	if err := l.limiter.Reserve(ctx); err != nil {
		metrics.LLMCalls.WithLabelValues(req.Label, "quota").Inc()
		return nil, fmt.Errorf("llm quota: %w", err)
	}

	requestedAt := time.Now()
	resp, err := l.next.Generate(ctx, req)
	completedAt := time.Now()

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.LLMCalls.WithLabelValues(req.Label, outcome).Inc()

	entry := models.AILog{
		RunID:       req.RunID,
		Label:       req.Label,
		InputPrompt: fmt.Sprintf("%s\n\n%s", req.System, req.Prompt),
		DurationMs:  completedAt.Sub(requestedAt).Milliseconds(),
		RequestedAt: requestedAt,
		CompletedAt: completedAt,
	}
	if resp != nil {
		entry.ModelName = resp.ModelName
		entry.ModelVersion = resp.ModelVersion
		entry.InputTokens = resp.InputTokens
		entry.OutputTokens = resp.OutputTokens
		entry.TotalTokens = resp.TotalTokens
		entry.OutputResponse = resp.Text
	}
	if err != nil {
		msg := err.Error()
		entry.ErrorMessage = &msg
	}
	if l.logs != nil {
		// the log write must not fail the call it describes
		if logErr := l.logs.Insert(context.WithoutCancel(ctx), entry); logErr != nil {
			config.ErrorWithFields("failed to insert ai log", config.Fields{
				"run_id": req.RunID,
				"label":  req.Label,
				"error":  logErr.Error(),
			})
		}
	}
	return resp, err
}
