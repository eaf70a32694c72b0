package events

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"content-forge/eventbus"
	"content-forge/models"
)

// Publisher 는 이벤트 버스의 발행 부분이다.
type Publisher interface {
	Publish(ctx context.Context, topic string, event eventbus.Event) error
}

// Dispatcher 생성 이벤트 발행 서비스
type Dispatcher struct {
	pub    Publisher
	topic  eventbus.Topic
	source string
}

func NewDispatcher(pub Publisher, topic eventbus.Topic, source string) *Dispatcher {
	return &Dispatcher{pub: pub, topic: topic, source: source}
}

// RequestGeneration 생성 요청 이벤트를 발행하고 이벤트 ID를 돌려준다.
func (d *Dispatcher) RequestGeneration(ctx context.Context, contentID primitive.ObjectID, excluded, outline []string, style *models.StyleSettings) (string, error) {
	e := GenerationRequestedEvent{
		BaseEvent:       NewBase(GenerationRequested, d.source),
		ContentID:       contentID,
		ExcludedDomains: excluded,
		Outline:         outline,
		Style:           style,
	}
	return e.ID, d.publish(ctx, contentID.Hex(), e)
}

// RequestContinue 이어하기 요청 이벤트 발행
func (d *Dispatcher) RequestContinue(ctx context.Context, runID primitive.ObjectID, phase string, research *models.ResearchData) (string, error) {
	e := GenerationContinueRequestedEvent{
		BaseEvent: NewBase(GenerationContinueRequested, d.source),
		RunID:     runID,
		Phase:     phase,
		Research:  research,
	}
	return e.ID, d.publish(ctx, runID.Hex(), e)
}

// PublishResearchCompleted 리서치 콜백 결과 발행
func (d *Dispatcher) PublishResearchCompleted(ctx context.Context, runID primitive.ObjectID, correlationID string, research models.ResearchData) (string, error) {
	e := ResearchCompletedEvent{
		BaseEvent:     NewBase(ResearchCompleted, d.source),
		RunID:         runID,
		CorrelationID: correlationID,
		Research:      research,
	}
	return e.ID, d.publish(ctx, runID.Hex(), e)
}

// publish 는 같은 실행의 이벤트가 같은 파티션에 오도록 key 를 고정한다.
func (d *Dispatcher) publish(ctx context.Context, key string, payload any) error {
	evt, err := eventbus.NewJSONEvent("", payload, 0)
	if err != nil {
		return fmt.Errorf("failed to build event: %w", err)
	}
	evt.Key = key
	return d.pub.Publish(ctx, d.topic.Base(), evt)
}
