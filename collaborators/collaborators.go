// Package collaborators declares the external services the generation pipeline
// drives. Implementations live in research, imagesearch, generator,
// screenshots and repositories.
package collaborators

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"content-forge/models"
)

// ResearchRequest is the brief handed to a researcher.
type ResearchRequest struct {
	RunID           string
	Title           string
	Keywords        []string
	Notes           string
	ExcludedDomains []string
}

// ResearchResult is either inline data (sync) or a correlation id whose data
// will be delivered later by callback (async).
type ResearchResult struct {
	Data          string
	Sources       []models.Source
	CorrelationID string
}

// Pending reports whether the research was accepted asynchronously.
func (r ResearchResult) Pending() bool {
	return r.CorrelationID != "" && r.Data == ""
}

type Researcher interface {
	Research(ctx context.Context, req ResearchRequest) (*ResearchResult, error)
}

type ImageSearchRequest struct {
	Title       string
	Keywords    []string
	Orientation string
	Sources     []models.Source
}

type ImageSearcher interface {
	SearchImage(ctx context.Context, req ImageSearchRequest) (models.Image, error)
}

type WriteRequest struct {
	RunID          string
	Title          string
	Keywords       []string
	Notes          string
	Outline        []string
	Research       models.ResearchData
	CoverImage     models.Image
	RelatedContent []models.RelatedContent
	Style          models.StyleSettings
}

type Writer interface {
	Write(ctx context.Context, req WriteRequest) (*models.Draft, error)
}

type QualityChecker interface {
	CheckQuality(ctx context.Context, content, originalPrompt string) (*models.QualityReport, error)
}

type Validator interface {
	Validate(ctx context.Context, content string) (*models.ValidationResult, error)
}

type Updater interface {
	Update(ctx context.Context, content, issueReport string, style models.StyleSettings) (string, error)
}

// ScreenshotEnhancer returns the enhanced content, or "" when it left the
// content unchanged.
type ScreenshotEnhancer interface {
	Enhance(ctx context.Context, runID, content string, sources []models.Source) (string, error)
}

// DeductOutcome says what a credit deduction did to the balance.
type DeductOutcome int

const (
	// DeductInsufficient means the balance was too low and nothing changed.
	DeductInsufficient DeductOutcome = iota
	// DeductCharged means the amount was taken from the balance.
	DeductCharged
	// DeductAlreadyCharged means an earlier call already charged this run.
	DeductAlreadyCharged
)

// CreditLedger charges a user once per run.
type CreditLedger interface {
	Deduct(ctx context.Context, userID, runID primitive.ObjectID, amount int) (DeductOutcome, error)
}
