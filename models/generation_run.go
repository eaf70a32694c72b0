package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RunStatus is the phase status of a generation run.
type RunStatus string

const (
	RunScheduled      RunStatus = "scheduled"
	RunResearch       RunStatus = "research"
	RunImage          RunStatus = "image"
	RunWriting        RunStatus = "writing"
	RunQualityControl RunStatus = "quality-control"
	RunValidating     RunStatus = "validating"
	RunUpdating       RunStatus = "updating"
	RunCompleted      RunStatus = "completed"
	RunFailed         RunStatus = "failed"
)

// ParseRunStatus accepts the phase names used by callbacks and the CLI.
func ParseRunStatus(s string) (RunStatus, bool) {
	switch st := RunStatus(s); st {
	case RunScheduled, RunResearch, RunImage, RunWriting, RunQualityControl,
		RunValidating, RunUpdating, RunCompleted, RunFailed:
		return st, true
	}
	return "", false
}

// Terminal reports whether no further phase follows.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed
}

// GenerationRun is one tracked attempt to produce a content item.
// Collection: generation_runs (unique content_item_id: runs are reset in place)
type GenerationRun struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
	ContentItemID    primitive.ObjectID `bson:"content_item_id" json:"content_item_id"`
	OwnerID          primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	ProjectID        primitive.ObjectID `bson:"project_id" json:"project_id"`
	Status           RunStatus          `bson:"status" json:"status"`
	Progress         int                `bson:"progress" json:"progress"`
	Artifacts        Artifacts          `bson:"artifacts" json:"artifacts"`
	ArtifactsVersion int64              `bson:"artifacts_version" json:"artifacts_version"`
	Options          RunOptions         `bson:"options" json:"options"`
	PublishReady     bool               `bson:"publish_ready" json:"publish_ready"`
	CreditsCharged   bool               `bson:"credits_charged" json:"credits_charged"`
	Error            string             `bson:"error,omitempty" json:"error,omitempty"`
	ErrorDetails     string             `bson:"error_details,omitempty" json:"error_details,omitempty"`
	StartedAt        time.Time          `bson:"started_at" json:"started_at"`
	CompletedAt      *time.Time         `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// RunOptions keeps the request parameters needed to rebuild the generation
// context when a parked run is resumed from a callback.
type RunOptions struct {
	ExcludedDomains []string      `bson:"excluded_domains,omitempty" json:"excluded_domains,omitempty"`
	Outline         []string      `bson:"outline,omitempty" json:"outline,omitempty"`
	Style           StyleSettings `bson:"style" json:"style"`
}
