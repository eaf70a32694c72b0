package pipeline

import (
	"context"
	"time"

	"content-forge/artifacts"
	"content-forge/collaborators"
	"content-forge/config"
	"content-forge/metrics"
	"content-forge/models"
	"content-forge/progress"
)

// 단계별 진행률
const (
	progressResearch          = 10
	progressImage             = 25
	progressWriting           = 40
	progressScreenshots       = 55
	progressQualityControl    = 65
	progressValidating        = 75
	progressUpdating          = 85
	progressRecheckQuality    = 90
	progressRecheckValidation = 95
)

// Phases 는 한 번 호출로 끝나는 단계들을 감싼다. 각 단계는 진행률을 갱신하고
// 협력자를 호출한 뒤 결과를 자기 artifact 키 아래에 병합한다.
type Phases struct {
	tracker     *progress.Tracker
	artifacts   ArtifactStore
	contents    ContentStore
	researcher  collaborators.Researcher
	images      collaborators.ImageSearcher
	writer      collaborators.Writer
	screenshots collaborators.ScreenshotEnhancer
	cfg         Config
}

// fail 은 실행과 콘텐츠에 실패를 기록하고 오케스트레이터용 오류로 감싼다.
func (p *Phases) fail(ctx context.Context, rc *runContext, phase string, err error) error {
	p.tracker.ReportFailure(ctx, rc.target, err)
	return &PhaseError{Phase: phase, Err: err, Recorded: true}
}

func (p *Phases) merge(ctx context.Context, rc *runContext, key string, v any) error {
	fragment, err := artifacts.Fragment(key, v)
	if err != nil {
		return err
	}
	_, err = p.artifacts.Merge(ctx, rc.run.ID, fragment)
	return err
}

// Research 는 리서치를 요청한다. 대기 결과는 콜백이 실행을 찾을 수 있도록
// correlation id 를 기록한다.
func (p *Phases) Research(ctx context.Context, rc *runContext) (res *collaborators.ResearchResult, err error) {
	start := time.Now()
	defer func() { metrics.ObservePhase(PhaseResearch, start, err) }()

	if err := p.tracker.Advance(ctx, rc.target, models.RunResearch, progressResearch, nil); err != nil {
		return nil, p.fail(ctx, rc, PhaseResearch, err)
	}

	callCtx, cancel := withTimeout(ctx, p.cfg.Timeouts.Research)
	defer cancel()
	res, err = p.researcher.Research(callCtx, collaborators.ResearchRequest{
		RunID:           rc.run.ID.Hex(),
		Title:           rc.item.Title,
		Keywords:        rc.item.Keywords,
		Notes:           rc.item.Notes,
		ExcludedDomains: rc.run.Options.ExcludedDomains,
	})
	if err != nil {
		return nil, p.fail(ctx, rc, PhaseResearch, err)
	}

	now := time.Now()
	artifact := models.ResearchArtifact{CorrelationID: res.CorrelationID}
	if res.Pending() {
		artifact.RequestedAt = &now
	} else {
		artifact.Data = res.Data
		artifact.Sources = res.Sources
		artifact.Completed = true
		artifact.CompletedAt = &now
	}
	if err := p.merge(ctx, rc, models.ArtifactResearch, artifact); err != nil {
		return nil, p.fail(ctx, rc, PhaseResearch, err)
	}
	return res, nil
}

// RecordResearch 는 콜백으로 받은 리서치 데이터를 저장한다.
func (p *Phases) RecordResearch(ctx context.Context, rc *runContext, data models.ResearchData) error {
	now := time.Now()
	return p.merge(ctx, rc, models.ArtifactResearch, models.ResearchArtifact{
		Data:        data.Data,
		Sources:     data.Sources,
		Completed:   true,
		CompletedAt: &now,
	})
}

// SelectImage 는 커버 이미지를 고른다. 오류는 기록하지 않고 돌려주며
// 오케스트레이터는 커버 없이 계속 진행한다.
func (p *Phases) SelectImage(ctx context.Context, rc *runContext, sources []models.Source) (img models.Image, err error) {
	start := time.Now()
	defer func() { metrics.ObservePhase(PhaseImage, start, err) }()

	if err := p.tracker.Advance(ctx, rc.target, models.RunImage, progressImage, nil); err != nil {
		return models.Image{}, p.fail(ctx, rc, PhaseImage, err)
	}

	callCtx, cancel := withTimeout(ctx, p.cfg.Timeouts.Image)
	defer cancel()
	img, err = p.images.SearchImage(callCtx, collaborators.ImageSearchRequest{
		Title:       rc.item.Title,
		Keywords:    rc.item.Keywords,
		Orientation: p.cfg.ImageOrientation,
		Sources:     sources,
	})

	artifact := models.CoverImageArtifact{Image: img}
	if err != nil {
		artifact = models.CoverImageArtifact{Error: err.Error()}
		img = models.Image{}
	}
	if mergeErr := p.merge(ctx, rc, models.ArtifactCoverImage, artifact); mergeErr != nil {
		fields := rc.fields()
		fields["error"] = mergeErr.Error()
		config.WarnWithFields("failed to record cover image artifact", fields)
	}
	if err != nil {
		return models.Image{}, &PhaseError{Phase: PhaseImage, Err: err}
	}
	return img, nil
}

// Write 는 리서치 데이터와 선택된 커버로 초안을 작성한다.
func (p *Phases) Write(ctx context.Context, rc *runContext, research models.ResearchData, cover models.Image) (draft *models.Draft, err error) {
	start := time.Now()
	defer func() { metrics.ObservePhase(PhaseWrite, start, err) }()

	if err := p.tracker.Advance(ctx, rc.target, models.RunWriting, progressWriting, nil); err != nil {
		return nil, p.fail(ctx, rc, PhaseWrite, err)
	}

	related, relErr := p.contents.ListRelated(ctx, rc.item.ProjectID, rc.item.ID, p.cfg.RelatedLimit)
	if relErr != nil {
		fields := rc.fields()
		fields["error"] = relErr.Error()
		config.WarnWithFields("related content lookup failed", fields)
		related = nil
	}

	callCtx, cancel := withTimeout(ctx, p.cfg.Timeouts.Write)
	defer cancel()
	draft, err = p.writer.Write(callCtx, collaborators.WriteRequest{
		RunID:          rc.run.ID.Hex(),
		Title:          rc.item.Title,
		Keywords:       rc.item.Keywords,
		Notes:          rc.item.Notes,
		Outline:        rc.run.Options.Outline,
		Research:       research,
		CoverImage:     cover,
		RelatedContent: related,
		Style:          rc.run.Options.Style,
	})
	if err != nil {
		return nil, p.fail(ctx, rc, PhaseWrite, err)
	}
	if err := p.merge(ctx, rc, models.ArtifactWrite, models.WriteArtifact{Draft: *draft, WrittenAt: time.Now()}); err != nil {
		return nil, p.fail(ctx, rc, PhaseWrite, err)
	}
	return draft, nil
}

// EnhanceScreenshots 는 출처 스크린샷을 본문에 넣는다. enhancer 가 없거나
// 바뀐 것이 없으면 콘텐츠를 그대로 돌려준다.
func (p *Phases) EnhanceScreenshots(ctx context.Context, rc *runContext, content string, sources []models.Source) (out string, err error) {
	if p.screenshots == nil || len(sources) == 0 {
		return content, nil
	}
	start := time.Now()
	defer func() { metrics.ObservePhase(PhaseScreenshots, start, err) }()

	if err := p.tracker.Advance(ctx, rc.target, models.RunWriting, progressScreenshots, nil); err != nil {
		return "", p.fail(ctx, rc, PhaseScreenshots, err)
	}

	callCtx, cancel := withTimeout(ctx, p.cfg.Timeouts.Screenshot)
	defer cancel()
	enhanced, err := p.screenshots.Enhance(callCtx, rc.run.ID.Hex(), content, sources)
	if err != nil {
		return "", p.fail(ctx, rc, PhaseScreenshots, err)
	}
	out = content
	if enhanced != "" {
		out = enhanced
	}
	if err := p.merge(ctx, rc, models.ArtifactScreenshots, models.ScreenshotsArtifact{Applied: enhanced != ""}); err != nil {
		return "", p.fail(ctx, rc, PhaseScreenshots, err)
	}
	return out, nil
}
