package models

import "time"

// Artifacts is the per-run document of intermediate phase outputs, keyed by
// phase name. Each phase merges only its own subtree.
type Artifacts map[string]any

// Artifact subtree keys.
const (
	ArtifactResearch       = "research"
	ArtifactCoverImage     = "coverImage"
	ArtifactWrite          = "write"
	ArtifactScreenshots    = "screenshots"
	ArtifactQualityControl = "qualityControl"
	ArtifactValidation     = "validation"
	ArtifactUpdate         = "update"
)

// ResearchArtifact is stored under artifacts.research.
type ResearchArtifact struct {
	CorrelationID string     `json:"correlationId,omitempty"`
	Data          string     `json:"data,omitempty"`
	Sources       []Source   `json:"sources,omitempty"`
	Completed     bool       `json:"completed"`
	RequestedAt   *time.Time `json:"requestedAt,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

// Usable reports whether the artifact carries research data the writer can use.
func (r ResearchArtifact) Usable() bool {
	return r.Completed && r.Data != ""
}

// WriteArtifact is stored under artifacts.write.
type WriteArtifact struct {
	Draft
	WrittenAt time.Time `json:"writtenAt"`
}

// ScreenshotsArtifact is stored under artifacts.screenshots.
type ScreenshotsArtifact struct {
	Applied bool `json:"applied"`
}

// QualityControlArtifact is stored under artifacts.qualityControl. RunCount is
// the persisted budget counter for quality-control invocations.
type QualityControlArtifact struct {
	RunCount     int                `json:"runCount"`
	LatestReport *QualityReport     `json:"latestReport,omitempty"`
	History      []QualityRunRecord `json:"history,omitempty"`
}

// QualityRunRecord is one entry of the quality-control history.
type QualityRunRecord struct {
	Label      string    `json:"label"`
	Source     string    `json:"source"` // collaborator | cached | fallback
	IsValid    bool      `json:"isValid"`
	IssueCount int       `json:"issueCount"`
	At         time.Time `json:"at"`
}

// ValidationArtifact is stored under artifacts.validation.
type ValidationArtifact struct {
	Initial *ValidationResult `json:"initial,omitempty"`
	Final   *ValidationResult `json:"final,omitempty"`
}

// UpdateArtifact is stored under artifacts.update.
type UpdateArtifact struct {
	IssueReport    string    `json:"issueReport"`
	UpdatedContent string    `json:"updatedContent"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// CoverImageArtifact is stored under artifacts.coverImage. Error is set when
// image selection failed and the run went on without a cover.
type CoverImageArtifact struct {
	Image
	Error string `json:"error,omitempty"`
}
