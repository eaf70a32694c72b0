package pipeline

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"content-forge/config"
	"content-forge/models"
	"content-forge/progress"
)

// RunStore 는 파이프라인이 사용하는 GenerationRun 저장소이다.
type RunStore interface {
	progress.RunWriter
	Start(ctx context.Context, item *models.ContentItem, opts models.RunOptions) (*models.GenerationRun, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.GenerationRun, error)
	MarkCompleted(ctx context.Context, id primitive.ObjectID, publishReady bool) error
}

// ContentStore 는 파이프라인이 사용하는 ContentItem 저장소이다.
type ContentStore interface {
	progress.ContentWriter
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.ContentItem, error)
	SaveGenerated(ctx context.Context, id primitive.ObjectID, g models.GeneratedContent) error
	ListRelated(ctx context.Context, projectID, excludeID primitive.ObjectID, limit int) ([]models.RelatedContent, error)
}

// ArtifactStore 는 실행의 artifacts 문서를 읽고 깊은 병합한다.
type ArtifactStore interface {
	Load(ctx context.Context, runID primitive.ObjectID) (models.Artifacts, error)
	Merge(ctx context.Context, runID primitive.ObjectID, fragment models.Artifacts) (models.Artifacts, error)
}

// Transactor 는 fn 을 원자적으로 실행한다. fn 은 전달받은 context 를 써야 한다.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Config 는 파이프라인 동작 파라미터이다.
type Config struct {
	MaxQualityRuns   int
	CreditCost       int
	ImageOrientation string
	RelatedLimit     int
	Timeouts         config.PhaseTimeouts
	DefaultStyle     models.StyleSettings
}

// ConfigFrom 은 단계별 타임아웃을 공통 CallTimeout 기준으로 채운다.
func ConfigFrom(cfg config.AppConfig) Config {
	p := cfg.Pipeline
	return Config{
		MaxQualityRuns:   p.MaxQualityRuns,
		CreditCost:       p.CreditCost,
		ImageOrientation: p.ImageOrientation,
		RelatedLimit:     p.RelatedLimit,
		Timeouts: config.PhaseTimeouts{
			Research:   p.Timeout(p.Timeouts.Research),
			Image:      p.Timeout(p.Timeouts.Image),
			Write:      p.Timeout(p.Timeouts.Write),
			Quality:    p.Timeout(p.Timeouts.Quality),
			Validation: p.Timeout(p.Timeouts.Validation),
			Update:     p.Timeout(p.Timeouts.Update),
			Screenshot: p.Timeout(p.Timeouts.Screenshot),
		},
		DefaultStyle: models.StyleSettings{
			Tone:        cfg.Style.Tone,
			Audience:    cfg.Style.Audience,
			Language:    cfg.Style.Language,
			TargetWords: cfg.Style.TargetWords,
		},
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// runContext 는 각 단계가 다루는 실행에 대한 정보를 묶는다.
type runContext struct {
	run    *models.GenerationRun
	item   *models.ContentItem
	target progress.Target
}

func newRunContext(run *models.GenerationRun, item *models.ContentItem) *runContext {
	return &runContext{
		run:    run,
		item:   item,
		target: progress.Target{RunID: run.ID, ContentID: item.ID},
	}
}

func (rc *runContext) fields() config.Fields {
	return config.Fields{
		"run_id":     rc.run.ID.Hex(),
		"content_id": rc.item.ID.Hex(),
	}
}
