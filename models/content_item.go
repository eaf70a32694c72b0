package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContentStatus is the lifecycle status of a content item.
type ContentStatus string

const (
	ContentIdea           ContentStatus = "idea"
	ContentScheduled      ContentStatus = "scheduled"
	ContentGenerating     ContentStatus = "generating"
	ContentReadyToPublish ContentStatus = "ready-to-publish"
	ContentPublished      ContentStatus = "published"
	ContentFailed         ContentStatus = "failed"
)

// ContentItem is the publishable unit being generated
// Collection: content_items
type ContentItem struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
	ProjectID primitive.ObjectID `bson:"project_id" json:"project_id"`
	OwnerID   primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	Title     string             `bson:"title" json:"title"`
	Keywords  []string           `bson:"keywords" json:"keywords"`
	Notes     string             `bson:"notes" json:"notes"`
	Status    ContentStatus      `bson:"status" json:"status"`

	// generated fields, written by finalization
	Body            string     `bson:"body,omitempty" json:"body,omitempty"`
	BodyHTML        string     `bson:"body_html,omitempty" json:"body_html,omitempty"`
	MetaDescription string     `bson:"meta_description,omitempty" json:"meta_description,omitempty"`
	Slug            string     `bson:"slug,omitempty" json:"slug,omitempty"`
	Tags            []string   `bson:"tags,omitempty" json:"tags,omitempty"`
	CoverImageURL   string     `bson:"cover_image_url,omitempty" json:"cover_image_url,omitempty"`
	CoverImageAlt   string     `bson:"cover_image_alt,omitempty" json:"cover_image_alt,omitempty"`
	PublishReady    bool       `bson:"publish_ready" json:"publish_ready"`
	GeneratedAt     *time.Time `bson:"generated_at,omitempty" json:"generated_at,omitempty"`
	LastError       string     `bson:"last_error,omitempty" json:"last_error,omitempty"`
}

// GeneratedContent holds the fields persisted on a content item when a run completes.
type GeneratedContent struct {
	Body            string
	BodyHTML        string
	MetaDescription string
	Slug            string
	Tags            []string
	CoverImage      Image
	PublishReady    bool
	Status          ContentStatus
	GeneratedAt     time.Time
}

// RelatedContent is a sibling item offered to the writer for internal linking.
type RelatedContent struct {
	Title string `bson:"title" json:"title"`
	Slug  string `bson:"slug" json:"slug"`
}
