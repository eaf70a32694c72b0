package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"content-forge/artifacts"
	"content-forge/collaborators"
	"content-forge/config"
	"content-forge/metrics"
	"content-forge/models"
	"content-forge/progress"
	"content-forge/repositories"
	"content-forge/trace"
)

// Dependencies 는 오케스트레이터가 사용하는 저장소와 협력자들이다.
// Screenshots 와 Ledger 는 생략할 수 있다.
type Dependencies struct {
	Runs      RunStore
	Contents  ContentStore
	Artifacts ArtifactStore
	Tx        Transactor

	Researcher  collaborators.Researcher
	Images      collaborators.ImageSearcher
	Writer      collaborators.Writer
	Screenshots collaborators.ScreenshotEnhancer
	Quality     collaborators.QualityChecker
	Validator   collaborators.Validator
	Updater     collaborators.Updater
	Ledger      collaborators.CreditLedger
}

// Orchestrator 는 생성 실행의 단계들을 순서대로 진행한다.
type Orchestrator struct {
	runs      RunStore
	contents  ContentStore
	artifacts ArtifactStore
	tracker   *progress.Tracker
	phases    *Phases
	quality   *QualityController
	finalizer *Finalizer
	cfg       Config
}

func New(deps Dependencies, cfg Config) *Orchestrator {
	if cfg.MaxQualityRuns <= 0 {
		cfg.MaxQualityRuns = 3
	}
	tracker := progress.NewTracker(deps.Runs, deps.Contents)
	return &Orchestrator{
		runs:      deps.Runs,
		contents:  deps.Contents,
		artifacts: deps.Artifacts,
		tracker:   tracker,
		phases: &Phases{
			tracker:     tracker,
			artifacts:   deps.Artifacts,
			contents:    deps.Contents,
			researcher:  deps.Researcher,
			images:      deps.Images,
			writer:      deps.Writer,
			screenshots: deps.Screenshots,
			cfg:         cfg,
		},
		quality: &QualityController{
			tracker:   tracker,
			artifacts: deps.Artifacts,
			checker:   deps.Quality,
			validator: deps.Validator,
			updater:   deps.Updater,
			cfg:       cfg,
			now:       time.Now,
		},
		finalizer: &Finalizer{
			tx:       deps.Tx,
			tracker:  tracker,
			runs:     deps.Runs,
			contents: deps.Contents,
			ledger:   deps.Ledger,
			cfg:      cfg,
			now:      time.Now,
		},
		cfg: cfg,
	}
}

// Request 는 콘텐츠 하나에 대한 생성 요청이다.
type Request struct {
	ContentID       primitive.ObjectID
	ExcludedDomains []string
	Outline         []string
	// Style 은 설정된 기본값을 필드 단위로 덮어쓴다.
	Style *models.StyleSettings
}

// Result 는 실행이 어디에서 멈췄는지 나타낸다.
type Result struct {
	RunID           primitive.ObjectID
	Status          models.RunStatus
	Suspended       bool
	PublishReady    bool
	CreditsDeducted bool
}

// Generate 는 콘텐츠의 실행을 만들거나 초기화하고 리서치부터 진행한다.
// 리서치가 비동기면 실행은 research 상태로 대기하고 결과는 Suspended 로 표시된다.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*Result, error) {
	item, err := o.contents.FindByID(ctx, req.ContentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrContentNotFound
		}
		return nil, fmt.Errorf("load content item: %w", err)
	}
	opts := models.RunOptions{
		ExcludedDomains: req.ExcludedDomains,
		Outline:         req.Outline,
		Style:           o.style(req.Style),
	}
	run, err := o.runs.Start(ctx, item, opts)
	if err != nil {
		return nil, fmt.Errorf("start generation run: %w", err)
	}
	config.InfoWithFields("generation run started", config.Fields{
		"run_id":     run.ID.Hex(),
		"content_id": item.ID.Hex(),
	})
	rc := newRunContext(run, item)
	return o.finish(ctx, rc, func(ctx context.Context) (*Result, error) {
		return o.fromResearch(ctx, rc)
	})
}

func (o *Orchestrator) style(override *models.StyleSettings) models.StyleSettings {
	s := o.cfg.DefaultStyle
	if override == nil {
		return s
	}
	if override.Tone != "" {
		s.Tone = override.Tone
	}
	if override.Audience != "" {
		s.Audience = override.Audience
	}
	if override.Language != "" {
		s.Language = override.Language
	}
	if override.TargetWords > 0 {
		s.TargetWords = override.TargetWords
	}
	return s
}

// ContinueFromPhase 는 비동기 리서치가 끝난 뒤 대기 중인 실행을 재개한다.
// research 나 scheduled 를 지정하면 처음부터 다시 생성한다. 그 이후 단계는
// 전달된 data 나 artifacts 에 저장된 리서치로 이미지 선택부터 다시 들어간다.
// image 대상인데 둘 다 없으면 리서치를 다시 실행한다.
func (o *Orchestrator) ContinueFromPhase(ctx context.Context, runID primitive.ObjectID, phase string, data *models.ResearchData) (*Result, error) {
	target, ok := models.ParseRunStatus(phase)
	if !ok || target.Terminal() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPhase, phase)
	}
	run, err := o.runs.FindByID(ctx, runID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("load generation run: %w", err)
	}
	if run.Status == models.RunCompleted {
		return nil, ErrRunAlreadyCompleted
	}
	item, err := o.contents.FindByID(ctx, run.ContentItemID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrContentNotFound
		}
		return nil, fmt.Errorf("load content item: %w", err)
	}

	fields := config.Fields{
		"run_id":     run.ID.Hex(),
		"content_id": item.ID.Hex(),
		"phase":      phase,
	}

	if target == models.RunScheduled || target == models.RunResearch {
		// 여기서 리서치 비용이 다시 발생한다
		config.WarnWithFields("continuation targets research, restarting generation", fields)
		style := run.Options.Style
		return o.Generate(ctx, Request{
			ContentID:       item.ID,
			ExcludedDomains: run.Options.ExcludedDomains,
			Outline:         run.Options.Outline,
			Style:           &style,
		})
	}
	config.InfoWithFields("continuing generation run", fields)

	rc := newRunContext(run, item)
	return o.finish(ctx, rc, func(ctx context.Context) (*Result, error) {
		research, ok, err := o.recoverResearch(ctx, rc, data)
		if err != nil {
			return nil, err
		}
		if ok {
			return o.fromImage(ctx, rc, research)
		}
		if target == models.RunImage {
			config.WarnWithFields("no usable research data, running research again", fields)
			return o.fromResearch(ctx, rc)
		}
		return nil, fmt.Errorf("%w: run %s phase %s", ErrResumptionDataMissing, rc.run.ID.Hex(), phase)
	})
}

// recoverResearch 는 콜백 데이터를 우선하고, 없으면 저장된 artifact 를 쓴다.
func (o *Orchestrator) recoverResearch(ctx context.Context, rc *runContext, data *models.ResearchData) (models.ResearchData, bool, error) {
	if data != nil && data.Data != "" {
		if err := o.phases.RecordResearch(ctx, rc, *data); err != nil {
			return models.ResearchData{}, false, fmt.Errorf("record research data: %w", err)
		}
		return *data, true, nil
	}
	current, err := o.artifacts.Load(ctx, rc.run.ID)
	if err != nil {
		return models.ResearchData{}, false, fmt.Errorf("load artifacts: %w", err)
	}
	var stored models.ResearchArtifact
	found, err := artifacts.Decode(current, models.ArtifactResearch, &stored)
	if err != nil {
		return models.ResearchData{}, false, err
	}
	if !found || !stored.Usable() {
		return models.ResearchData{}, false, nil
	}
	return models.ResearchData{Data: stored.Data, Sources: stored.Sources}, true, nil
}

func (o *Orchestrator) fromResearch(ctx context.Context, rc *runContext) (*Result, error) {
	res, err := o.phases.Research(ctx, rc)
	if err != nil {
		return nil, err
	}
	if res.Pending() {
		fields := rc.fields()
		fields["correlation_id"] = res.CorrelationID
		config.InfoWithFields("research is asynchronous, run parked", fields)
		return &Result{RunID: rc.run.ID, Status: models.RunResearch, Suspended: true}, nil
	}
	return o.fromImage(ctx, rc, models.ResearchData{Data: res.Data, Sources: res.Sources})
}

func (o *Orchestrator) fromImage(ctx context.Context, rc *runContext, research models.ResearchData) (*Result, error) {
	cover, err := o.phases.SelectImage(ctx, rc, research.Sources)
	if err != nil {
		var pe *PhaseError
		if errors.As(err, &pe) && pe.Recorded {
			return nil, err
		}
		fields := rc.fields()
		fields["error"] = err.Error()
		config.WarnWithFields("image selection failed, continuing without cover", fields)
		cover = models.Image{}
	}

	draft, err := o.phases.Write(ctx, rc, research, cover)
	if err != nil {
		return nil, err
	}
	content, err := o.phases.EnhanceScreenshots(ctx, rc, draft.Content, research.Sources)
	if err != nil {
		return nil, err
	}
	outcome, err := o.quality.Run(ctx, rc, draft, content)
	if err != nil {
		return nil, err
	}
	credited, err := o.finalizer.Finalize(ctx, rc, draft, outcome.Content, cover, outcome.PublishReady)
	if err != nil {
		return nil, err
	}
	return &Result{
		RunID:           rc.run.ID,
		Status:          models.RunCompleted,
		PublishReady:    outcome.PublishReady,
		CreditsDeducted: credited,
	}, nil
}

// finish 는 실행의 단일 오류 경계이다. 단계에서 기록되지 않은 실패는
// panic 을 포함해 여기서 기록한다.
func (o *Orchestrator) finish(ctx context.Context, rc *runContext, body func(ctx context.Context) (*Result, error)) (res *Result, err error) {
	ctx = trace.WithRunID(ctx, rc.run.ID.Hex())
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("generation panicked: %v", r)
		}
		switch {
		case err != nil:
			var pe *PhaseError
			if !errors.As(err, &pe) || !pe.Recorded {
				o.tracker.ReportFailure(ctx, rc.target, err)
			}
			metrics.Runs.WithLabelValues("failed").Inc()
		case res.Suspended:
			metrics.Runs.WithLabelValues("suspended").Inc()
		default:
			metrics.Runs.WithLabelValues("completed").Inc()
		}
	}()
	return body(ctx)
}
