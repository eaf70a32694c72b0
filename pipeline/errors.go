package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrRunNotFound           = errors.New("generation run not found")
	ErrContentNotFound       = errors.New("content item not found")
	ErrResumptionDataMissing = errors.New("no research data available to resume from")
	ErrRunAlreadyCompleted   = errors.New("generation run already completed")
	ErrInvalidPhase          = errors.New("invalid continuation phase")

	errNoQualityReport = errors.New("quality checker returned no report")
	errNoValidation    = errors.New("validator returned no result")
)

// 오류, 로그, 메트릭에 쓰는 단계 이름
const (
	PhaseResearch       = "research"
	PhaseImage          = "image"
	PhaseWrite          = "writing"
	PhaseScreenshots    = "screenshots"
	PhaseQualityControl = "quality-control"
	PhaseValidation     = "validating"
	PhaseUpdate         = "updating"
	PhaseFinalize       = "finalize"
)

// PhaseError 는 한 단계 안에서 발생한 협력자 실패이다.
// Recorded 가 true 면 실행과 콘텐츠가 이미 failed 로 기록된 상태다.
type PhaseError struct {
	Phase    string
	Err      error
	Recorded bool
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase failed: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }
