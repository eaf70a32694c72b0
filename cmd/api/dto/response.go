package dto

// ErrorResponseDTO는 공통 에러 응답 형식을 통일하기 위한 DTO이다.
type ErrorResponseDTO struct {
	Error string `json:"error"`
}

// AcceptedResponseDTO 는 비동기로 접수된 요청의 응답이다.
type AcceptedResponseDTO struct {
	EventID string `json:"event_id"`
	RunID   string `json:"run_id,omitempty"`
}
