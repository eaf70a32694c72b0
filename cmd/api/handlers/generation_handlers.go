package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"content-forge/cmd/api/dto"
	"content-forge/cmd/api/services"
	"content-forge/config"
)

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		config.ErrorWithFields("request failed", config.Fields{"path": c.FullPath(), "error": err.Error()})
	}
	c.JSON(status, dto.ErrorResponseDTO{Error: err.Error()})
}

// GenerateContentHandler POST /contents/:id/generate
// 생성 이벤트를 발행하고 202 를 돌려준다. 본문은 비어 있어도 된다.
func GenerateContentHandler(svc *services.GenerationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in dto.GenerateRequestDTO
		if err := c.ShouldBindJSON(&in); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: err.Error()})
			return
		}
		eventID, err := svc.RequestGeneration(c.Request.Context(), c.Param("id"), in)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, dto.AcceptedResponseDTO{EventID: eventID})
	}
}

// GetRunHandler GET /runs/:id
// 실행 상태와 품질검사 횟수를 돌려준다.
func GetRunHandler(svc *services.GenerationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		run, err := svc.GetRun(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, run)
	}
}

// ContinueRunHandler POST /runs/:id/continue
// 지정한 단계부터 재개하는 이벤트를 발행한다.
func ContinueRunHandler(svc *services.GenerationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in dto.ContinueRequestDTO
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: err.Error()})
			return
		}
		eventID, err := svc.RequestContinue(c.Request.Context(), c.Param("id"), in)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, dto.AcceptedResponseDTO{EventID: eventID, RunID: c.Param("id")})
	}
}

// ResearchWebhookHandler POST /webhooks/research
// correlation id 로 실행을 찾아 리서치 완료 이벤트를 발행한다.
func ResearchWebhookHandler(svc *services.GenerationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in dto.ResearchWebhookDTO
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: err.Error()})
			return
		}
		runID, eventID, err := svc.AcceptResearch(c.Request.Context(), in)
		if err != nil {
			writeError(c, err)
			return
		}
		config.InfoWithFields("research callback accepted", config.Fields{
			"run_id":         runID,
			"correlation_id": in.CorrelationID,
			"event_id":       eventID,
		})
		c.JSON(http.StatusAccepted, dto.AcceptedResponseDTO{EventID: eventID, RunID: runID})
	}
}
