package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"content-forge/cmd/api/dto"
	"content-forge/cmd/api/services"
	"content-forge/eventbus"
	"content-forge/events"
	"content-forge/models"
	"content-forge/repositories"
)

type fakeContents map[primitive.ObjectID]*models.ContentItem

func (f fakeContents) FindByID(_ context.Context, id primitive.ObjectID) (*models.ContentItem, error) {
	if it, ok := f[id]; ok {
		return it, nil
	}
	return nil, repositories.ErrNotFound
}

type fakeRuns map[primitive.ObjectID]*models.GenerationRun

func (f fakeRuns) FindByID(_ context.Context, id primitive.ObjectID) (*models.GenerationRun, error) {
	if r, ok := f[id]; ok {
		return r, nil
	}
	return nil, repositories.ErrNotFound
}

func (f fakeRuns) FindByCorrelationID(_ context.Context, correlationID string) (*models.GenerationRun, error) {
	for _, r := range f {
		if research, ok := r.Artifacts[models.ArtifactResearch].(map[string]any); ok && research["correlationId"] == correlationID {
			return r, nil
		}
	}
	return nil, repositories.ErrNotFound
}

type recordingPublisher struct {
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, evt eventbus.Event) error {
	p.events = append(p.events, evt)
	return nil
}

type fixture struct {
	engine *gin.Engine
	pub    *recordingPublisher
	item   *models.ContentItem
	parked *models.GenerationRun
	done   *models.GenerationRun
}

func newFixture() *fixture {
	gin.SetMode(gin.TestMode)
	item := &models.ContentItem{ID: primitive.NewObjectID(), Title: "t"}
	parked := &models.GenerationRun{
		ID:            primitive.NewObjectID(),
		ContentItemID: item.ID,
		Status:        models.RunResearch,
		Progress:      10,
		Artifacts: models.Artifacts{
			models.ArtifactResearch:       map[string]any{"correlationId": "corr-1", "completed": false},
			models.ArtifactQualityControl: map[string]any{"runCount": 2},
		},
	}
	done := &models.GenerationRun{ID: primitive.NewObjectID(), ContentItemID: item.ID, Status: models.RunCompleted}
	pub := &recordingPublisher{}
	svc := services.NewGenerationService(
		fakeContents{item.ID: item},
		fakeRuns{parked.ID: parked, done.ID: done},
		events.NewDispatcher(pub, eventbus.TopicGenerationEvents, "api"),
	)
	return &fixture{engine: NewEngine(svc, Options{}), pub: pub, item: item, parked: parked, done: done}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestGenerateContent(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPost, "/api/v1/contents/"+f.item.ID.Hex()+"/generate", `{"outline":["a","b"]}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	var out dto.AcceptedResponseDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.NotEmpty(t, out.EventID)
	require.Len(t, f.pub.events, 1)

	e, err := eventbus.DecodeJSON[events.GenerationRequestedEvent](f.pub.events[0])
	require.NoError(t, err)
	assert.Equal(t, f.item.ID, e.ContentID)
	assert.Equal(t, []string{"a", "b"}, e.Outline)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestGenerateContentWithoutBody(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodPost, "/api/v1/contents/"+f.item.ID.Hex()+"/generate", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestGenerateContentErrors(t *testing.T) {
	f := newFixture()
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/v1/contents/not-an-id/generate", `{}`).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/api/v1/contents/"+primitive.NewObjectID().Hex()+"/generate", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/v1/contents/"+f.item.ID.Hex()+"/generate", `{"outline":`).Code)
	assert.Empty(t, f.pub.events)
}

func TestGetRun(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodGet, "/api/v1/runs/"+f.parked.ID.Hex(), "")
	require.Equal(t, http.StatusOK, w.Code)

	var run dto.RunDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, "research", run.Status)
	assert.Equal(t, 10, run.Progress)
	assert.Equal(t, 2, run.QualityRuns)
	assert.Equal(t, "corr-1", run.CorrelationID)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/v1/runs/"+primitive.NewObjectID().Hex(), "").Code)
}

func TestContinueRun(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPost, "/api/v1/runs/"+f.parked.ID.Hex()+"/continue", `{"phase":"image","research":{"data":"notes"}}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	e, err := eventbus.DecodeJSON[events.GenerationContinueRequestedEvent](f.pub.events[0])
	require.NoError(t, err)
	assert.Equal(t, "image", e.Phase)
	require.NotNil(t, e.Research)
	assert.Equal(t, "notes", e.Research.Data)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/v1/runs/"+f.parked.ID.Hex()+"/continue", `{"phase":"completed"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/v1/runs/"+f.parked.ID.Hex()+"/continue", `{}`).Code)
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/v1/runs/"+f.done.ID.Hex()+"/continue", `{"phase":"image"}`).Code)
}

func TestResearchWebhook(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPost, "/api/v1/webhooks/research", `{"correlation_id":"corr-1","data":"findings","sources":[{"title":"s","url":"https://example.com"}]}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	var out dto.AcceptedResponseDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, f.parked.ID.Hex(), out.RunID)

	e, err := eventbus.DecodeJSON[events.ResearchCompletedEvent](f.pub.events[0])
	require.NoError(t, err)
	assert.Equal(t, events.ResearchCompleted, e.Type)
	assert.Equal(t, f.parked.ID, e.RunID)
	assert.Equal(t, "findings", e.Research.Data)
	require.Len(t, e.Research.Sources, 1)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/api/v1/webhooks/research", `{"correlation_id":"nope","data":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/v1/webhooks/research", `{"correlation_id":"corr-1"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/v1/webhooks/research", `{"data":"x"}`).Code)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture()
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/metrics", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture()
	h := New(services.NewGenerationService(fakeContents{}, fakeRuns{}, events.NewDispatcher(f.pub, eventbus.TopicGenerationEvents, "api")),
		Options{CORSOrigins: []string{"https://app.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/runs/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
