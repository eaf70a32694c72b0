package dto

import (
	"time"

	"content-forge/models"
)

// GenerateRequestDTO 는 생성 요청 본문이다. 모든 필드는 선택.
type GenerateRequestDTO struct {
	ExcludedDomains []string              `json:"excluded_domains"`
	Outline         []string              `json:"outline"`
	Style           *models.StyleSettings `json:"style"`
}

// ContinueRequestDTO 는 멈춘 실행을 이어가는 요청이다.
type ContinueRequestDTO struct {
	Phase    string               `json:"phase" binding:"required"`
	Research *models.ResearchData `json:"research"`
}

// ResearchWebhookDTO 는 비동기 리서치 공급자가 보내는 콜백 본문이다.
type ResearchWebhookDTO struct {
	CorrelationID string          `json:"correlation_id" binding:"required"`
	Data          string          `json:"data"`
	Sources       []models.Source `json:"sources"`
}

// RunDTO 는 생성 실행의 조회 응답이다.
type RunDTO struct {
	ID             string     `json:"id"`
	ContentItemID  string     `json:"content_item_id"`
	Status         string     `json:"status"`
	Progress       int        `json:"progress"`
	PublishReady   bool       `json:"publish_ready"`
	CreditsCharged bool       `json:"credits_charged"`
	QualityRuns    int        `json:"quality_runs"`
	CorrelationID  string     `json:"correlation_id,omitempty"`
	Error          string     `json:"error,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}
