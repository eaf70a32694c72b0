package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"content-forge/collaborators"
	"content-forge/config"
	"content-forge/markdown"
	"content-forge/metrics"
	"content-forge/models"
	"content-forge/progress"
)

// Finalizer 는 완성된 글 저장과 실행 완료를 하나의 트랜잭션으로 처리하고,
// 발행 가능한 결과에 대해서만 크레딧을 차감한다.
type Finalizer struct {
	tx       Transactor
	tracker  *progress.Tracker
	runs     RunStore
	contents ContentStore
	ledger   collaborators.CreditLedger
	cfg      Config
	now      func() time.Time
}

// Finalize 는 크레딧 차감 여부를 돌려준다. 이 시점에 콘텐츠는 이미 커밋되었으므로
// 차감 실패가 실행을 실패시키지 않는다.
func (f *Finalizer) Finalize(ctx context.Context, rc *runContext, draft *models.Draft, content string, cover models.Image, publishReady bool) (credited bool, err error) {
	start := time.Now()
	defer func() { metrics.ObservePhase(PhaseFinalize, start, err) }()

	generated, err := f.buildContent(rc, draft, content, cover, publishReady)
	if err != nil {
		f.tracker.ReportFailure(ctx, rc.target, err)
		return false, &PhaseError{Phase: PhaseFinalize, Err: err, Recorded: true}
	}

	err = f.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := f.contents.SaveGenerated(ctx, rc.item.ID, generated); err != nil {
			return fmt.Errorf("save generated content: %w", err)
		}
		if err := f.runs.MarkCompleted(ctx, rc.run.ID, publishReady); err != nil {
			return fmt.Errorf("complete run: %w", err)
		}
		return nil
	})
	if err != nil {
		f.tracker.ReportFailure(ctx, rc.target, err)
		return false, &PhaseError{Phase: PhaseFinalize, Err: err, Recorded: true}
	}

	fields := rc.fields()
	fields["publish_ready"] = publishReady
	fields["content_status"] = string(generated.Status)
	config.InfoWithFields("generation run completed", fields)

	if !publishReady || f.cfg.CreditCost <= 0 || f.ledger == nil {
		return false, nil
	}
	return f.deduct(ctx, rc), nil
}

func (f *Finalizer) buildContent(rc *runContext, draft *models.Draft, content string, cover models.Image, publishReady bool) (models.GeneratedContent, error) {
	body := markdown.NormalizeIntro(content, draft.IntroParagraph)
	html, err := markdown.ToHTML(body)
	if err != nil {
		return models.GeneratedContent{}, fmt.Errorf("render html: %w", err)
	}
	slug := markdown.Slugify(draft.Slug)
	if slug == "" {
		slug = markdown.Slugify(rc.item.Title)
	}
	if cover.Empty() {
		cover = models.Image{}
	} else if strings.TrimSpace(cover.AltText) == "" {
		cover.AltText = rc.item.Title
	}
	return models.GeneratedContent{
		Body:            body,
		BodyHTML:        html,
		MetaDescription: draft.MetaDescription,
		Slug:            slug,
		Tags:            draft.Tags,
		CoverImage:      cover,
		PublishReady:    publishReady,
		Status:          progress.ContentStatusFor(models.RunCompleted, publishReady),
		GeneratedAt:     f.now(),
	}, nil
}

// deduct 는 커밋 이후 호출자 취소와 무관한 context 로 실행된다.
func (f *Finalizer) deduct(ctx context.Context, rc *runContext) bool {
	ctx = context.WithoutCancel(ctx)
	fields := rc.fields()
	fields["owner_id"] = rc.item.OwnerID.Hex()
	fields["amount"] = f.cfg.CreditCost

	outcome, err := f.ledger.Deduct(ctx, rc.item.OwnerID, rc.run.ID, f.cfg.CreditCost)
	if err != nil {
		fields["error"] = err.Error()
		config.ErrorWithFields("credit deduction failed", fields)
		return false
	}
	switch outcome {
	case collaborators.DeductCharged:
		metrics.CreditsDeducted.Add(float64(f.cfg.CreditCost))
		config.InfoWithFields("credits deducted", fields)
		return true
	case collaborators.DeductAlreadyCharged:
		config.DebugWithFields("run already charged", fields)
		return true
	default:
		config.WarnWithFields("credits not deducted, balance insufficient", fields)
		return false
	}
}
