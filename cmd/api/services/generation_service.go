package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"content-forge/artifacts"
	"content-forge/cmd/api/dto"
	"content-forge/models"
	"content-forge/pipeline"
	"content-forge/repositories"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

type ContentFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.ContentItem, error)
}

type RunFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.GenerationRun, error)
	FindByCorrelationID(ctx context.Context, correlationID string) (*models.GenerationRun, error)
}

// EventDispatcher 는 워커로 가는 생성 이벤트를 발행한다. *events.Dispatcher 가 구현한다.
type EventDispatcher interface {
	RequestGeneration(ctx context.Context, contentID primitive.ObjectID, excluded, outline []string, style *models.StyleSettings) (string, error)
	RequestContinue(ctx context.Context, runID primitive.ObjectID, phase string, research *models.ResearchData) (string, error)
	PublishResearchCompleted(ctx context.Context, runID primitive.ObjectID, correlationID string, research models.ResearchData) (string, error)
}

// GenerationService 는 HTTP 요청을 검증하고 생성 이벤트로 바꾼다.
// 파이프라인 자체는 워커에서 돈다.
type GenerationService struct {
	contents ContentFinder
	runs     RunFinder
	events   EventDispatcher
}

func NewGenerationService(contents ContentFinder, runs RunFinder, events EventDispatcher) *GenerationService {
	return &GenerationService{contents: contents, runs: runs, events: events}
}

func parseID(s string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: malformed id %q", ErrInvalidInput, s)
	}
	return id, nil
}

func lookup(err error, what string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

// RequestGeneration 콘텐츠 생성 요청을 접수한다.
func (s *GenerationService) RequestGeneration(ctx context.Context, contentID string, in dto.GenerateRequestDTO) (string, error) {
	id, err := parseID(contentID)
	if err != nil {
		return "", err
	}
	if _, err := s.contents.FindByID(ctx, id); err != nil {
		return "", lookup(err, "content item")
	}
	return s.events.RequestGeneration(ctx, id, in.ExcludedDomains, in.Outline, in.Style)
}

// GetRun 실행 상태를 조회한다.
func (s *GenerationService) GetRun(ctx context.Context, runID string) (*dto.RunDTO, error) {
	id, err := parseID(runID)
	if err != nil {
		return nil, err
	}
	run, err := s.runs.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "generation run")
	}
	return toRunDTO(run), nil
}

// RequestContinue 멈춘 실행의 이어하기를 접수한다.
func (s *GenerationService) RequestContinue(ctx context.Context, runID string, in dto.ContinueRequestDTO) (string, error) {
	id, err := parseID(runID)
	if err != nil {
		return "", err
	}
	status, ok := models.ParseRunStatus(in.Phase)
	if !ok || status.Terminal() {
		return "", fmt.Errorf("%w: %v %q", ErrInvalidInput, pipeline.ErrInvalidPhase, in.Phase)
	}
	run, err := s.runs.FindByID(ctx, id)
	if err != nil {
		return "", lookup(err, "generation run")
	}
	if run.Status == models.RunCompleted {
		return "", fmt.Errorf("%w: %v", ErrConflict, pipeline.ErrRunAlreadyCompleted)
	}
	return s.events.RequestContinue(ctx, id, in.Phase, in.Research)
}

// AcceptResearch 리서치 콜백을 상관 ID 로 실행에 연결하고 이벤트로 넘긴다.
func (s *GenerationService) AcceptResearch(ctx context.Context, in dto.ResearchWebhookDTO) (runID, eventID string, err error) {
	if in.Data == "" {
		return "", "", fmt.Errorf("%w: research data is empty", ErrInvalidInput)
	}
	run, err := s.runs.FindByCorrelationID(ctx, in.CorrelationID)
	if err != nil {
		return "", "", lookup(err, "correlation id")
	}
	if run.Status == models.RunCompleted {
		return "", "", fmt.Errorf("%w: %v", ErrConflict, pipeline.ErrRunAlreadyCompleted)
	}
	eventID, err = s.events.PublishResearchCompleted(ctx, run.ID, in.CorrelationID, models.ResearchData{
		Data:    in.Data,
		Sources: in.Sources,
	})
	return run.ID.Hex(), eventID, err
}

func toRunDTO(run *models.GenerationRun) *dto.RunDTO {
	out := &dto.RunDTO{
		ID:             run.ID.Hex(),
		ContentItemID:  run.ContentItemID.Hex(),
		Status:         string(run.Status),
		Progress:       run.Progress,
		PublishReady:   run.PublishReady,
		CreditsCharged: run.CreditsCharged,
		Error:          run.Error,
		StartedAt:      run.StartedAt,
		UpdatedAt:      run.UpdatedAt,
		CompletedAt:    run.CompletedAt,
	}
	if state, err := pipeline.QualityStateFrom(run.Artifacts); err == nil {
		out.QualityRuns = state.RunsSoFar
	}
	var research models.ResearchArtifact
	if ok, err := artifacts.Decode(run.Artifacts, models.ArtifactResearch, &research); ok && err == nil {
		out.CorrelationID = research.CorrelationID
	}
	return out
}
