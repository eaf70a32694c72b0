package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"content-forge/models"
)

// EventType 이벤트 타입 정의
type EventType string

const (
	GenerationRequested         EventType = "generation.requested"
	GenerationContinueRequested EventType = "generation.continue_requested"
	ResearchCompleted           EventType = "research.completed"
)

const eventVersion = "1.0"

// BaseEvent 모든 이벤트의 기본 구조
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"` // "api", "contentctl" 등
	Version   string    `json:"version"`
}

// NewBase 새 이벤트 메타데이터를 만든다.
func NewBase(t EventType, source string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: time.Now(),
		Source:    source,
		Version:   eventVersion,
	}
}

// GenerationRequestedEvent 콘텐츠 생성 요청 이벤트
type GenerationRequestedEvent struct {
	BaseEvent
	ContentID       primitive.ObjectID    `json:"content_id"`
	ExcludedDomains []string              `json:"excluded_domains,omitempty"`
	Outline         []string              `json:"outline,omitempty"`
	Style           *models.StyleSettings `json:"style,omitempty"`
}

// GenerationContinueRequestedEvent 멈춰 있는 실행을 특정 단계부터 이어가라는 요청
type GenerationContinueRequestedEvent struct {
	BaseEvent
	RunID    primitive.ObjectID   `json:"run_id"`
	Phase    string               `json:"phase"`
	Research *models.ResearchData `json:"research,omitempty"`
}

// ResearchCompletedEvent 비동기 리서치 콜백 도착 이벤트
type ResearchCompletedEvent struct {
	BaseEvent
	RunID         primitive.ObjectID  `json:"run_id"`
	CorrelationID string              `json:"correlation_id"`
	Research      models.ResearchData `json:"research"`
}

// PeekType 페이로드의 top-level type 필드만 읽는다.
func PeekType(payload []byte) (EventType, error) {
	var peek struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(payload, &peek); err != nil {
		return "", fmt.Errorf("failed to read event type: %w", err)
	}
	return peek.Type, nil
}

// DeserializeEvent 이벤트 타입에 따라 적절한 구조체로 역직렬화
func DeserializeEvent(eventType EventType, data []byte) (any, error) {
	var event any
	switch eventType {
	case GenerationRequested:
		event = &GenerationRequestedEvent{}
	case GenerationContinueRequested:
		event = &GenerationContinueRequestedEvent{}
	case ResearchCompleted:
		event = &ResearchCompletedEvent{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return event, nil
}
