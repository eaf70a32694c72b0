package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"content-forge/artifacts"
	"content-forge/collaborators"
	"content-forge/models"
	"content-forge/repositories"
)

type memRuns struct {
	mu       sync.Mutex
	runs     map[primitive.ObjectID]*models.GenerationRun
	statuses []models.RunStatus
}

func newMemRuns() *memRuns {
	return &memRuns{runs: map[primitive.ObjectID]*models.GenerationRun{}}
}

func (m *memRuns) Start(_ context.Context, item *models.ContentItem, opts models.RunOptions) (*models.GenerationRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, r := range m.runs {
		if r.ContentItemID != item.ID {
			continue
		}
		kept := models.Artifacts{}
		if qc, ok := r.Artifacts[models.ArtifactQualityControl]; ok {
			kept[models.ArtifactQualityControl] = qc
		}
		r.Status = models.RunScheduled
		r.Progress = 0
		r.Artifacts = kept
		r.ArtifactsVersion++
		r.Options = opts
		r.Error = ""
		r.ErrorDetails = ""
		r.CreditsCharged = false
		r.StartedAt = now
		r.CompletedAt = nil
		cp := *r
		return &cp, nil
	}
	r := &models.GenerationRun{
		ID:            primitive.NewObjectID(),
		CreatedAt:     now,
		ContentItemID: item.ID,
		OwnerID:       item.OwnerID,
		ProjectID:     item.ProjectID,
		Status:        models.RunScheduled,
		Artifacts:     models.Artifacts{},
		Options:       opts,
		StartedAt:     now,
	}
	m.runs[r.ID] = r
	cp := *r
	return &cp, nil
}

func (m *memRuns) FindByID(_ context.Context, id primitive.ObjectID) (*models.GenerationRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRuns) get(id primitive.ObjectID) models.GenerationRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.runs[id]
}

func (m *memRuns) UpdateStatus(_ context.Context, id primitive.ObjectID, status models.RunStatus, progress int, _ map[string]any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return false, nil
	}
	r.Status = status
	r.Progress = progress
	m.statuses = append(m.statuses, status)
	return true, nil
}

func (m *memRuns) MarkFailed(_ context.Context, id primitive.ObjectID, message, details string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return false, nil
	}
	r.Status = models.RunFailed
	r.Error = message
	r.ErrorDetails = details
	return true, nil
}

func (m *memRuns) MarkCompleted(_ context.Context, id primitive.ObjectID, publishReady bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return repositories.ErrNotFound
	}
	now := time.Now()
	r.Status = models.RunCompleted
	r.Progress = 100
	r.PublishReady = publishReady
	r.CompletedAt = &now
	return nil
}

func (m *memRuns) LoadArtifacts(_ context.Context, id primitive.ObjectID) (models.Artifacts, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, 0, repositories.ErrNotFound
	}
	return artifacts.Merge(r.Artifacts, nil), r.ArtifactsVersion, nil
}

func (m *memRuns) SwapArtifacts(_ context.Context, id primitive.ObjectID, version int64, a models.Artifacts) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok || r.ArtifactsVersion != version {
		return false, nil
	}
	r.Artifacts = a
	r.ArtifactsVersion++
	return true, nil
}

type memContents struct {
	mu       sync.Mutex
	items    map[primitive.ObjectID]*models.ContentItem
	statuses []models.ContentStatus
	saveErr  error
}

func newMemContents(items ...*models.ContentItem) *memContents {
	m := &memContents{items: map[primitive.ObjectID]*models.ContentItem{}}
	for _, it := range items {
		m.items[it.ID] = it
	}
	return m
}

func (m *memContents) FindByID(_ context.Context, id primitive.ObjectID) (*models.ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (m *memContents) get(id primitive.ObjectID) models.ContentItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.items[id]
}

func (m *memContents) UpdateStatus(_ context.Context, id primitive.ObjectID, status models.ContentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.items[id]; ok {
		it.Status = status
		m.statuses = append(m.statuses, status)
	}
	return nil
}

func (m *memContents) MarkFailed(_ context.Context, id primitive.ObjectID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.items[id]; ok {
		it.Status = models.ContentFailed
		it.LastError = message
	}
	return nil
}

func (m *memContents) SaveGenerated(_ context.Context, id primitive.ObjectID, g models.GeneratedContent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	it, ok := m.items[id]
	if !ok {
		return repositories.ErrNotFound
	}
	it.Body = g.Body
	it.BodyHTML = g.BodyHTML
	it.MetaDescription = g.MetaDescription
	it.Slug = g.Slug
	it.Tags = g.Tags
	it.CoverImageURL = g.CoverImage.URL
	it.CoverImageAlt = g.CoverImage.AltText
	it.PublishReady = g.PublishReady
	it.Status = g.Status
	at := g.GeneratedAt
	it.GeneratedAt = &at
	it.LastError = ""
	return nil
}

func (m *memContents) ListRelated(context.Context, primitive.ObjectID, primitive.ObjectID, int) ([]models.RelatedContent, error) {
	return []models.RelatedContent{{Title: "Earlier post", Slug: "earlier-post"}}, nil
}

type passthroughTx struct{}

func (passthroughTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeLedger struct {
	mu      sync.Mutex
	calls   int
	charged map[primitive.ObjectID]bool
	balance int
	err     error
}

func (l *fakeLedger) Deduct(_ context.Context, _, runID primitive.ObjectID, amount int) (collaborators.DeductOutcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return collaborators.DeductInsufficient, l.err
	}
	if l.charged == nil {
		l.charged = map[primitive.ObjectID]bool{}
	}
	if l.charged[runID] {
		return collaborators.DeductAlreadyCharged, nil
	}
	if l.balance < amount {
		return collaborators.DeductInsufficient, nil
	}
	l.balance -= amount
	l.charged[runID] = true
	return collaborators.DeductCharged, nil
}

// fakeEnhancer returns out as the enhanced content; "" means nothing was added.
type fakeEnhancer struct {
	calls int
	out   string
	err   error
}

func (f *fakeEnhancer) Enhance(_ context.Context, _ string, _ string, _ []models.Source) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.out, nil
}

type fakeResearcher struct {
	calls  int
	result collaborators.ResearchResult
	err    error
}

func (f *fakeResearcher) Research(context.Context, collaborators.ResearchRequest) (*collaborators.ResearchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	res := f.result
	return &res, nil
}

type fakeImages struct {
	img models.Image
	err error
}

func (f *fakeImages) SearchImage(context.Context, collaborators.ImageSearchRequest) (models.Image, error) {
	return f.img, f.err
}

type fakeWriter struct {
	calls int
	last  collaborators.WriteRequest
	err   error
}

func (f *fakeWriter) Write(_ context.Context, req collaborators.WriteRequest) (*models.Draft, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Draft{
		Content:         "# " + req.Title + "\n\nOld intro.\n\n## TL;DR\n\nShort.\n\n## Body\n\nText citing research.\n",
		MetaDescription: "About " + req.Title,
		Slug:            "Draft Slug",
		Tags:            []string{"go"},
		IntroParagraph:  "Fresh intro.",
		OriginalPrompt:  "prompt for " + req.Title,
	}, nil
}

// scriptedChecker returns reports in order and repeats the last one.
type scriptedChecker struct {
	calls   int
	reports []*models.QualityReport
	err     error
}

func (f *scriptedChecker) CheckQuality(context.Context, string, string) (*models.QualityReport, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	i := f.calls - 1
	if i >= len(f.reports) {
		i = len(f.reports) - 1
	}
	if f.reports[i] == nil {
		return nil, nil
	}
	r := *f.reports[i]
	return &r, nil
}

type scriptedValidator struct {
	calls   int
	results []*models.ValidationResult
	err     error
}

func (f *scriptedValidator) Validate(context.Context, string) (*models.ValidationResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	i := f.calls - 1
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	if f.results[i] == nil {
		return nil, nil
	}
	r := *f.results[i]
	return &r, nil
}

type fakeUpdater struct {
	calls  int
	report string
	err    error
}

func (f *fakeUpdater) Update(_ context.Context, content, issueReport string, _ models.StyleSettings) (string, error) {
	f.calls++
	f.report = issueReport
	if f.err != nil {
		return "", f.err
	}
	return content + "\nRevised paragraph.\n", nil
}

var errCollaborator = errors.New("collaborator unavailable")

func cleanReport() *models.QualityReport { return &models.QualityReport{IsValid: true} }

func flaggedReport() *models.QualityReport {
	return &models.QualityReport{
		IsValid: false,
		Issues:  []models.QualityIssue{{Category: "clarity", Severity: models.SeverityMedium, Description: "vague intro"}},
	}
}

func validResult() *models.ValidationResult { return &models.ValidationResult{IsValid: true} }

func invalidResult() *models.ValidationResult {
	return &models.ValidationResult{
		IsValid: false,
		Issues:  []models.ValidationIssue{{Claim: "Go 1.0 shipped in 2010", Problem: "wrong year", Correction: "2012"}},
	}
}

type harness struct {
	runs       *memRuns
	contents   *memContents
	store      *artifacts.Store
	ledger     *fakeLedger
	researcher *fakeResearcher
	images     *fakeImages
	writer     *fakeWriter
	checker    *scriptedChecker
	validator  *scriptedValidator
	updater    *fakeUpdater
	enhancer   *fakeEnhancer
	item       *models.ContentItem
	cfg        Config
}

func newHarness() *harness {
	item := &models.ContentItem{
		ID:        primitive.NewObjectID(),
		ProjectID: primitive.NewObjectID(),
		OwnerID:   primitive.NewObjectID(),
		Title:     "Resumable Pipelines in Go",
		Keywords:  []string{"go", "pipelines"},
		Status:    models.ContentIdea,
	}
	runs := newMemRuns()
	return &harness{
		runs:     runs,
		contents: newMemContents(item),
		store:    artifacts.NewStore(runs),
		ledger:   &fakeLedger{balance: 10},
		researcher: &fakeResearcher{result: collaborators.ResearchResult{
			Data:    "research notes",
			Sources: []models.Source{{Title: "Source", URL: "https://example.com/a"}},
		}},
		images:    &fakeImages{img: models.Image{URL: "https://img.example.com/1.jpg", AltText: "cover"}},
		writer:    &fakeWriter{},
		checker:   &scriptedChecker{reports: []*models.QualityReport{cleanReport()}},
		validator: &scriptedValidator{results: []*models.ValidationResult{validResult()}},
		updater:   &fakeUpdater{},
		item:      item,
		cfg:       Config{MaxQualityRuns: 3, CreditCost: 1, RelatedLimit: 5},
	}
}

func (h *harness) orchestrator() *Orchestrator {
	var screenshots collaborators.ScreenshotEnhancer
	if h.enhancer != nil {
		screenshots = h.enhancer
	}
	return New(Dependencies{
		Runs:        h.runs,
		Contents:    h.contents,
		Artifacts:   h.store,
		Tx:          passthroughTx{},
		Researcher:  h.researcher,
		Images:      h.images,
		Writer:      h.writer,
		Quality:     h.checker,
		Validator:   h.validator,
		Updater:     h.updater,
		Screenshots: screenshots,
		Ledger:      h.ledger,
	}, h.cfg)
}
