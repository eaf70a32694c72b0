package main

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"content-forge/artifacts"
	"content-forge/config"
	"content-forge/eventbus"
	"content-forge/events"
	"content-forge/metrics"
	"content-forge/models"
	"content-forge/pipeline"
	"content-forge/repositories"
)

// Orchestrator 는 워커가 구동하는 파이프라인 진입점이다.
type Orchestrator interface {
	Generate(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	ContinueFromPhase(ctx context.Context, runID primitive.ObjectID, phase string, data *models.ResearchData) (*pipeline.Result, error)
}

// RunFinder 는 리서치 콜백이 아직 유효한지 확인할 때 실행을 다시 읽는다.
type RunFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.GenerationRun, error)
}

// EventHandlers 생성 이벤트를 파이프라인 호출로 바꾼다.
type EventHandlers struct {
	orch Orchestrator
	runs RunFinder
}

func NewEventHandlers(orch Orchestrator, runs RunFinder) *EventHandlers {
	return &EventHandlers{orch: orch, runs: runs}
}

// Handle 은 eventbus.EventHandler 다. 페이로드 오류는 재시도 없이 DLQ 로 보내고,
// 실행에 이미 기록된 파이프라인 실패는 재시도하지 않는다.
func (h *EventHandlers) Handle(ctx context.Context, evt eventbus.Event) error {
	typ, err := events.PeekType(evt.Payload)
	if err != nil {
		metrics.EventsConsumed.WithLabelValues("unknown", "invalid").Inc()
		return eventbus.Permanent(err)
	}
	decoded, err := events.DeserializeEvent(typ, evt.Payload)
	if err != nil {
		// 다른 서비스용 이벤트는 무시 (커밋)
		config.DebugWithFields("skipping event", config.Fields{"event_id": evt.ID, "type": string(typ)})
		metrics.EventsConsumed.WithLabelValues(string(typ), "skipped").Inc()
		return nil
	}

	var res *pipeline.Result
	switch e := decoded.(type) {
	case *events.GenerationRequestedEvent:
		res, err = h.orch.Generate(ctx, pipeline.Request{
			ContentID:       e.ContentID,
			ExcludedDomains: e.ExcludedDomains,
			Outline:         e.Outline,
			Style:           e.Style,
		})
	case *events.GenerationContinueRequestedEvent:
		res, err = h.orch.ContinueFromPhase(ctx, e.RunID, e.Phase, e.Research)
	case *events.ResearchCompletedEvent:
		var reason string
		reason, err = h.staleResearch(ctx, e)
		if err == nil && reason != "" {
			config.WarnWithFields("skipping stale research result", config.Fields{
				"event_id":       evt.ID,
				"run_id":         e.RunID.Hex(),
				"correlation_id": e.CorrelationID,
				"reason":         reason,
			})
			metrics.EventsConsumed.WithLabelValues(string(typ), "skipped").Inc()
			return nil
		}
		if err == nil {
			research := e.Research
			res, err = h.orch.ContinueFromPhase(ctx, e.RunID, string(models.RunImage), &research)
		}
	}

	fields := config.Fields{"event_id": evt.ID, "type": string(typ), "retry": evt.Retry}
	if err != nil {
		fields["error"] = err.Error()
		if settled(err) {
			config.ErrorWithFields("generation event failed", fields)
			metrics.EventsConsumed.WithLabelValues(string(typ), "failed").Inc()
			return nil
		}
		config.WarnWithFields("generation event failed, will retry", fields)
		metrics.EventsConsumed.WithLabelValues(string(typ), "retry").Inc()
		return err
	}
	if res != nil {
		fields["run_id"] = res.RunID.Hex()
		fields["status"] = string(res.Status)
		fields["suspended"] = res.Suspended
	}
	config.InfoWithFields("generation event handled", fields)
	metrics.EventsConsumed.WithLabelValues(string(typ), "ok").Inc()
	return nil
}

// staleResearch 는 콜백이 현재 대기 중인 리서치 요청에 대한 것이 아니면 그 이유를 돌려준다.
// 재시작된 실행이나 이미 진행 중인 실행에 중복/지연 웹훅이 들어오는 경우다.
func (h *EventHandlers) staleResearch(ctx context.Context, e *events.ResearchCompletedEvent) (string, error) {
	run, err := h.runs.FindByID(ctx, e.RunID)
	if errors.Is(err, repositories.ErrNotFound) {
		return "", pipeline.ErrRunNotFound
	}
	if err != nil {
		return "", err
	}
	if run.Status != models.RunResearch {
		return "run is " + string(run.Status) + ", not waiting for research", nil
	}
	var pending models.ResearchArtifact
	if _, err := artifacts.Decode(run.Artifacts, models.ArtifactResearch, &pending); err != nil {
		return "", err
	}
	if pending.CorrelationID != e.CorrelationID {
		return "correlation id does not match pending request " + pending.CorrelationID, nil
	}
	return "", nil
}

// settled 는 다시 처리해도 결과가 달라지지 않는 오류인지 판단한다.
func settled(err error) bool {
	var pe *pipeline.PhaseError
	if errors.As(err, &pe) {
		return true
	}
	for _, target := range []error{
		pipeline.ErrRunNotFound,
		pipeline.ErrContentNotFound,
		pipeline.ErrResumptionDataMissing,
		pipeline.ErrRunAlreadyCompleted,
		pipeline.ErrInvalidPhase,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
