package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"content-forge/artifacts"
	"content-forge/collaborators"
	"content-forge/config"
	"content-forge/metrics"
	"content-forge/models"
	"content-forge/progress"
)

// 품질검사 실행 라벨
const (
	LabelInitial = "initial"
	LabelRecheck = "recheck"
)

const (
	sourceCollaborator = "collaborator"
	sourceCached       = "cached"
	sourceFallback     = "fallback"
)

// CategoryQualityCap 은 품질검사 한도를 다 썼는데 이전 리포트가 없을 때
// 만드는 합성 이슈의 분류이다.
const CategoryQualityCap = "quality-cap"

const emptyIssueReport = "No specific issues were reported. Review the article and improve its accuracy and clarity where needed."

// QualityState 는 실행 하나의 품질검사 예산이다. 협력자 호출 횟수와 최신 리포트를 담는다.
// artifacts 에서 읽어 오므로 재개되거나 반복된 실행에서도 횟수가 이어진다.
type QualityState struct {
	RunsSoFar int
	Latest    *models.QualityReport
	History   []models.QualityRunRecord
}

// QualityStateFrom 은 실행의 artifacts 문서에서 상태를 읽는다.
func QualityStateFrom(a models.Artifacts) (QualityState, error) {
	var qc models.QualityControlArtifact
	if _, err := artifacts.Decode(a, models.ArtifactQualityControl, &qc); err != nil {
		return QualityState{}, err
	}
	return QualityState{RunsSoFar: qc.RunCount, Latest: qc.LatestReport, History: qc.History}, nil
}

func (s QualityState) artifact() models.QualityControlArtifact {
	return models.QualityControlArtifact{RunCount: s.RunsSoFar, LatestReport: s.Latest, History: s.History}
}

// QualityOutcome 은 품질 루프의 결과이다.
type QualityOutcome struct {
	Content      string
	Quality      *models.QualityReport
	Validation   *models.ValidationResult
	PublishReady bool
	Revised      bool
}

// QualityController 는 품질검사와 검증을 수행하고, 실행마다 최대 한 번
// 수정 후 재검사한다.
type QualityController struct {
	tracker   *progress.Tracker
	artifacts ArtifactStore
	checker   collaborators.QualityChecker
	validator collaborators.Validator
	updater   collaborators.Updater
	cfg       Config
	now       func() time.Time
}

// ApplyWithLimit 은 실행의 예산을 넘지 않고 품질 리포트를 돌려준다.
// 예산을 다 쓰면 협력자를 호출하지 않고 캐시된 리포트를,
// 캐시가 없으면 high 심각도의 합성 리포트를 돌려준다.
func (q *QualityController) ApplyWithLimit(ctx context.Context, rc *runContext, state QualityState, content, originalPrompt, label string) (*models.QualityReport, QualityState, error) {
	var (
		report *models.QualityReport
		source string
	)
	if state.RunsSoFar >= q.cfg.MaxQualityRuns {
		if state.Latest != nil {
			cached := *state.Latest
			report, source = &cached, sourceCached
		} else {
			report, source = capReport(q.cfg.MaxQualityRuns, label), sourceFallback
		}
		fields := rc.fields()
		fields["runs_so_far"] = state.RunsSoFar
		fields["source"] = source
		config.WarnWithFields("quality-control budget exhausted", fields)
	} else {
		callCtx, cancel := withTimeout(ctx, q.cfg.Timeouts.Quality)
		r, err := q.checker.CheckQuality(callCtx, content, originalPrompt)
		cancel()
		if err == nil && r == nil {
			err = errNoQualityReport
		}
		if err != nil {
			return nil, state, err
		}
		r.RunLabel = label
		report, source = r, sourceCollaborator
		state.RunsSoFar++
		state.Latest = r
	}
	metrics.QualityChecks.WithLabelValues(source).Inc()

	state.History = append(append([]models.QualityRunRecord(nil), state.History...), models.QualityRunRecord{
		Label:      label,
		Source:     source,
		IsValid:    report.IsValid,
		IssueCount: len(report.Issues),
		At:         q.now(),
	})
	fragment, err := artifacts.Fragment(models.ArtifactQualityControl, state.artifact())
	if err != nil {
		return nil, state, err
	}
	if _, err := q.artifacts.Merge(ctx, rc.run.ID, fragment); err != nil {
		return nil, state, fmt.Errorf("persist quality state: %w", err)
	}
	return report, state, nil
}

func capReport(maxRuns int, label string) *models.QualityReport {
	return &models.QualityReport{
		IsValid: false,
		Issues: []models.QualityIssue{{
			Category:    CategoryQualityCap,
			Severity:    models.SeverityHigh,
			Description: fmt.Sprintf("Quality-control limit of %d runs reached without a usable report.", maxRuns),
			Suggestion:  "Review the draft manually before publishing.",
		}},
		RunLabel: label,
	}
}

// Run 은 새로 작성된 초안에 대해 품질 루프를 진행한다.
func (q *QualityController) Run(ctx context.Context, rc *runContext, draft *models.Draft, content string) (*QualityOutcome, error) {
	fail := func(phase string, err error) error {
		q.tracker.ReportFailure(ctx, rc.target, err)
		return &PhaseError{Phase: phase, Err: err, Recorded: true}
	}
	advance := func(status models.RunStatus, pct int) error {
		return q.tracker.Advance(ctx, rc.target, status, pct, nil)
	}

	current, err := q.artifacts.Load(ctx, rc.run.ID)
	if err != nil {
		return nil, fail(PhaseQualityControl, err)
	}
	state, err := QualityStateFrom(current)
	if err != nil {
		return nil, fail(PhaseQualityControl, err)
	}

	// 1차 검사
	if err := advance(models.RunQualityControl, progressQualityControl); err != nil {
		return nil, fail(PhaseQualityControl, err)
	}
	qc, state, err := q.timedQuality(ctx, rc, state, content, draft.OriginalPrompt, LabelInitial)
	if err != nil {
		return nil, fail(PhaseQualityControl, err)
	}
	if err := advance(models.RunValidating, progressValidating); err != nil {
		return nil, fail(PhaseValidation, err)
	}
	initial, err := q.validate(ctx, content)
	if err != nil {
		return nil, fail(PhaseValidation, err)
	}
	if err := q.merge(ctx, rc, models.ArtifactValidation, models.ValidationArtifact{Initial: initial, Final: initial}); err != nil {
		return nil, fail(PhaseValidation, err)
	}

	out := &QualityOutcome{Content: content, Quality: qc, Validation: initial}
	if qc.Flagged() || initial.Flagged() {
		// 한 번 수정한 뒤 재검사
		if err := advance(models.RunUpdating, progressUpdating); err != nil {
			return nil, fail(PhaseUpdate, err)
		}
		report := BuildIssueReport(initial, qc)
		start := time.Now()
		callCtx, cancel := withTimeout(ctx, q.cfg.Timeouts.Update)
		updated, err := q.updater.Update(callCtx, content, report, rc.run.Options.Style)
		cancel()
		metrics.ObservePhase(PhaseUpdate, start, err)
		if err != nil {
			return nil, fail(PhaseUpdate, err)
		}
		if err := q.merge(ctx, rc, models.ArtifactUpdate, models.UpdateArtifact{
			IssueReport:    report,
			UpdatedContent: updated,
			UpdatedAt:      q.now(),
		}); err != nil {
			return nil, fail(PhaseUpdate, err)
		}
		out.Content = updated
		out.Revised = true

		if err := advance(models.RunQualityControl, progressRecheckQuality); err != nil {
			return nil, fail(PhaseQualityControl, err)
		}
		qc, _, err = q.timedQuality(ctx, rc, state, updated, draft.OriginalPrompt, LabelRecheck)
		if err != nil {
			return nil, fail(PhaseQualityControl, err)
		}
		out.Quality = qc

		if initial.Flagged() {
			if err := advance(models.RunValidating, progressRecheckValidation); err != nil {
				return nil, fail(PhaseValidation, err)
			}
			final, err := q.validate(ctx, updated)
			if err != nil {
				return nil, fail(PhaseValidation, err)
			}
			if err := q.merge(ctx, rc, models.ArtifactValidation, models.ValidationArtifact{Final: final}); err != nil {
				return nil, fail(PhaseValidation, err)
			}
			out.Validation = final
		}
	}

	out.PublishReady = out.Quality.IsValid && out.Validation.IsValid
	fields := rc.fields()
	fields["publish_ready"] = out.PublishReady
	fields["revised"] = out.Revised
	config.InfoWithFields("quality loop finished", fields)
	return out, nil
}

func (q *QualityController) timedQuality(ctx context.Context, rc *runContext, state QualityState, content, prompt, label string) (*models.QualityReport, QualityState, error) {
	start := time.Now()
	report, next, err := q.ApplyWithLimit(ctx, rc, state, content, prompt, label)
	metrics.ObservePhase(PhaseQualityControl, start, err)
	return report, next, err
}

func (q *QualityController) validate(ctx context.Context, content string) (*models.ValidationResult, error) {
	start := time.Now()
	callCtx, cancel := withTimeout(ctx, q.cfg.Timeouts.Validation)
	defer cancel()
	res, err := q.validator.Validate(callCtx, content)
	if err == nil && res == nil {
		err = errNoValidation
	}
	metrics.ObservePhase(PhaseValidation, start, err)
	return res, err
}

func (q *QualityController) merge(ctx context.Context, rc *runContext, key string, v any) error {
	fragment, err := artifacts.Fragment(key, v)
	if err != nil {
		return err
	}
	_, err = q.artifacts.Merge(ctx, rc.run.ID, fragment)
	return err
}

// BuildIssueReport 는 검증과 품질검사 결과를 updater 에 넘길 텍스트로 합친다.
// 빈 문자열을 돌려주지 않는다.
func BuildIssueReport(validation *models.ValidationResult, quality *models.QualityReport) string {
	var sections []string
	if validation.Flagged() {
		var b strings.Builder
		for _, is := range validation.Issues {
			fmt.Fprintf(&b, "- Claim: %s\n  Problem: %s\n", is.Claim, is.Problem)
			if is.Correction != "" {
				fmt.Fprintf(&b, "  Correction: %s\n", is.Correction)
			}
		}
		if len(validation.Issues) == 0 {
			b.WriteString(strings.TrimSpace(validation.RawValidationText))
		}
		if body := strings.TrimSpace(b.String()); body != "" {
			sections = append(sections, "## Fact-check findings\n"+body)
		}
	}
	if quality.Flagged() {
		var b strings.Builder
		for _, is := range quality.Issues {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", is.Severity, is.Category, is.Description)
			if is.Suggestion != "" {
				fmt.Fprintf(&b, "  Suggestion: %s\n", is.Suggestion)
			}
		}
		if len(quality.Issues) == 0 {
			b.WriteString(strings.TrimSpace(quality.RawReport))
		}
		if body := strings.TrimSpace(b.String()); body != "" {
			sections = append(sections, "## Quality findings\n"+body)
		}
	}
	if len(sections) == 0 {
		return emptyIssueReport
	}
	return strings.Join(sections, "\n\n")
}
