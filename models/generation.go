package models

// Source is a reference gathered during research.
type Source struct {
	Title   string `json:"title" bson:"title"`
	URL     string `json:"url" bson:"url"`
	Snippet string `json:"snippet,omitempty" bson:"snippet,omitempty"`
}

// ResearchData is the research payload, delivered inline or by callback.
type ResearchData struct {
	Data    string   `json:"data"`
	Sources []Source `json:"sources,omitempty"`
}

// Image is a selected cover image. The zero value means no image.
type Image struct {
	URL     string `json:"url" bson:"url"`
	AltText string `json:"altText" bson:"alt_text"`
}

// Empty reports whether no image was selected.
func (i Image) Empty() bool { return i.URL == "" }

// StyleSettings steers tone and shape of written and revised drafts.
type StyleSettings struct {
	Tone        string `json:"tone,omitempty" bson:"tone,omitempty"`
	Audience    string `json:"audience,omitempty" bson:"audience,omitempty"`
	Language    string `json:"language,omitempty" bson:"language,omitempty"`
	TargetWords int    `json:"targetWords,omitempty" bson:"target_words,omitempty"`
}

// Draft is the output of the writing collaborator.
type Draft struct {
	Content         string   `json:"content"`
	MetaDescription string   `json:"metaDescription"`
	Slug            string   `json:"slug,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	IntroParagraph  string   `json:"introParagraph,omitempty"`
	// OriginalPrompt is the generation prompt, handed to quality control.
	OriginalPrompt string `json:"originalPrompt,omitempty"`
}

// Severity levels used in quality issues.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// QualityIssue is a structured finding of the quality-control collaborator.
type QualityIssue struct {
	Category    string `json:"category"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion,omitempty"`
}

// QualityReport is the result of one quality-control pass.
type QualityReport struct {
	IsValid   bool           `json:"isValid"`
	Issues    []QualityIssue `json:"issues"`
	RawReport string         `json:"rawReport,omitempty"`
	RunLabel  string         `json:"runLabel,omitempty"`
}

// Flagged reports whether the report asks for a revision.
func (r *QualityReport) Flagged() bool {
	return r != nil && (!r.IsValid || len(r.Issues) > 0)
}

// ValidationIssue is a fact-check finding.
type ValidationIssue struct {
	Claim      string `json:"claim"`
	Problem    string `json:"problem"`
	Correction string `json:"correction,omitempty"`
}

// ValidationResult is the result of one fact-check pass.
type ValidationResult struct {
	IsValid           bool              `json:"isValid"`
	Issues            []ValidationIssue `json:"issues"`
	RawValidationText string            `json:"rawValidationText,omitempty"`
}

// Flagged reports whether the validation asks for a revision.
func (r *ValidationResult) Flagged() bool {
	return r != nil && (!r.IsValid || len(r.Issues) > 0)
}
