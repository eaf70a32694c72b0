package research

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"content-forge/collaborators"
	"content-forge/httpclient"
	"content-forge/models"
)

// HTTPResearcher delegates research to an external service. The service either
// answers inline or accepts the job and later posts the result to the callback URL.
type HTTPResearcher struct {
	client      *httpclient.BaseClient
	apiKey      string
	callbackURL string
}

func NewHTTPResearcher(client *httpclient.BaseClient, apiKey, callbackURL string) *HTTPResearcher {
	return &HTTPResearcher{client: client, apiKey: apiKey, callbackURL: callbackURL}
}

type researchJobRequest struct {
	RunID           string   `json:"run_id"`
	Title           string   `json:"title"`
	Keywords        []string `json:"keywords"`
	Notes           string   `json:"notes,omitempty"`
	ExcludedDomains []string `json:"excluded_domains,omitempty"`
	CallbackURL     string   `json:"callback_url,omitempty"`
}

type researchJobResponse struct {
	CorrelationID string          `json:"correlation_id"`
	Data          string          `json:"data"`
	Sources       []models.Source `json:"sources"`
}

func (h *HTTPResearcher) Research(ctx context.Context, req collaborators.ResearchRequest) (*collaborators.ResearchResult, error) {
	body, err := httpclient.JSONBody(researchJobRequest{
		RunID:           req.RunID,
		Title:           req.Title,
		Keywords:        req.Keywords,
		Notes:           req.Notes,
		ExcludedDomains: req.ExcludedDomains,
		CallbackURL:     h.callbackURL,
	})
	if err != nil {
		return nil, err
	}
	httpReq, err := h.client.NewRequest(ctx, http.MethodPost, "/research", nil, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	var out researchJobResponse
	if err := h.client.DoJSON(httpReq, &out); err != nil {
		return nil, fmt.Errorf("research request: %w", err)
	}
	if out.Data == "" && out.CorrelationID == "" {
		return nil, errors.New("research service returned neither data nor correlation id")
	}
	return &collaborators.ResearchResult{
		Data:          out.Data,
		Sources:       out.Sources,
		CorrelationID: out.CorrelationID,
	}, nil
}
