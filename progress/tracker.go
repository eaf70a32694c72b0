package progress

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"content-forge/config"
	"content-forge/models"
)

// RunWriter 는 GenerationRun 의 상태 필드를 갱신한다. 두 메서드 모두
// 일치하는 실행이 있었는지 돌려준다.
type RunWriter interface {
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.RunStatus, progress int, extra map[string]any) (bool, error)
	MarkFailed(ctx context.Context, id primitive.ObjectID, message, details string) (bool, error)
}

// ContentWriter 는 실행 상태를 상위 ContentItem 에 반영한다.
type ContentWriter interface {
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.ContentStatus) error
	MarkFailed(ctx context.Context, id primitive.ObjectID, message string) error
}

// Target 은 실행과 그 실행이 생성하는 ContentItem 을 가리킨다.
type Target struct {
	RunID     primitive.ObjectID
	ContentID primitive.ObjectID
}

func (t Target) fields() config.Fields {
	return config.Fields{"run_id": t.RunID.Hex(), "content_id": t.ContentID.Hex()}
}

// Tracker 는 실행의 단계를 진행시키고 콘텐츠 상태를 함께 맞춘다.
type Tracker struct {
	runs     RunWriter
	contents ContentWriter
}

func NewTracker(runs RunWriter, contents ContentWriter) *Tracker {
	return &Tracker{runs: runs, contents: contents}
}

// ContentStatusFor 는 실행 상태를 사용자에게 보이는 콘텐츠 상태로 바꾼다.
func ContentStatusFor(status models.RunStatus, publishReady bool) models.ContentStatus {
	switch status {
	case models.RunScheduled:
		return models.ContentScheduled
	case models.RunFailed:
		return models.ContentFailed
	case models.RunCompleted:
		if publishReady {
			return models.ContentReadyToPublish
		}
		return models.ContentScheduled
	default:
		return models.ContentGenerating
	}
}

// Advance 는 실행의 단계 전환을 기록한 뒤 콘텐츠 상태를 맞춘다.
// 일치하는 실행이 없으면 콘텐츠는 건드리지 않는다. 콘텐츠 갱신 실패는 로그만 남긴다.
func (t *Tracker) Advance(ctx context.Context, target Target, status models.RunStatus, progress int, extra map[string]any) error {
	matched, err := t.runs.UpdateStatus(ctx, target.RunID, status, progress, extra)
	if err != nil {
		return fmt.Errorf("advance run to %s: %w", status, err)
	}
	fields := target.fields()
	fields["status"] = string(status)
	fields["progress"] = progress
	if !matched {
		config.WarnWithFields("run not found, content status left unchanged", fields)
		return nil
	}
	if err := t.contents.UpdateStatus(ctx, target.ContentID, ContentStatusFor(status, false)); err != nil {
		fields["error"] = err.Error()
		config.ErrorWithFields("content status update failed", fields)
		return nil
	}
	config.DebugWithFields("run advanced", fields)
	return nil
}

// ReportFailure 는 실행과 콘텐츠를 모두 failed 로 표시한다.
// 실패 경로에서 호출되므로 자체 오류는 로그만 남기고 돌려주지 않는다.
func (t *Tracker) ReportFailure(ctx context.Context, target Target, cause error) {
	if cause == nil {
		return
	}
	// 호출자 context 가 끝났어도 기록은 남긴다
	ctx = context.WithoutCancel(ctx)
	message := cause.Error()
	details := fmt.Sprintf("%+v\n\n%s", cause, debug.Stack())

	fields := target.fields()
	fields["error"] = message

	matched, err := t.runs.MarkFailed(ctx, target.RunID, message, details)
	if err != nil {
		fields["bookkeeping_error"] = err.Error()
		config.ErrorWithFields("failed to record run failure", fields)
	} else if !matched {
		config.WarnWithFields("run not found while recording failure", fields)
	}
	if err := t.contents.MarkFailed(ctx, target.ContentID, message); err != nil {
		fields["bookkeeping_error"] = err.Error()
		config.ErrorWithFields("failed to record content failure", fields)
	}
	config.ErrorWithFields("generation run failed", fields)
}
