package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"content-forge/db"
	"content-forge/models"
)

type ContentItemRepository struct {
	col *mongo.Collection
}

func NewContentItemRepository(d *mongo.Database) *ContentItemRepository {
	return &ContentItemRepository{col: d.Collection(db.ContentItemsCollection)}
}

// Insert inserts a new content item in the idea state unless a status is set.
func (r *ContentItemRepository) Insert(ctx context.Context, item *models.ContentItem) (primitive.ObjectID, error) {
	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	if item.Status == "" {
		item.Status = models.ContentIdea
	}
	res, err := r.col.InsertOne(ctx, item)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	item.ID = id
	return id, nil
}

// FindByID returns a content item or ErrNotFound.
func (r *ContentItemRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.ContentItem, error) {
	var item models.ContentItem
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&item); err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

// UpdateStatus sets status and updated_at.
func (r *ContentItemRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.ContentStatus) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"status": status, "updated_at": time.Now()},
	})
	return err
}

// MarkFailed sets the failed status together with the stored message.
func (r *ContentItemRepository) MarkFailed(ctx context.Context, id primitive.ObjectID, message string) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"status":     models.ContentFailed,
			"last_error": message,
			"updated_at": time.Now(),
		},
	})
	return err
}

// SaveGenerated writes the generated fields. Pass a session context to join a transaction.
func (r *ContentItemRepository) SaveGenerated(ctx context.Context, id primitive.ObjectID, g models.GeneratedContent) error {
	generatedAt := g.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}
	res, err := r.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"body":             g.Body,
			"body_html":        g.BodyHTML,
			"meta_description": g.MetaDescription,
			"slug":             g.Slug,
			"tags":             g.Tags,
			"cover_image_url":  g.CoverImage.URL,
			"cover_image_alt":  g.CoverImage.AltText,
			"publish_ready":    g.PublishReady,
			"status":           g.Status,
			"generated_at":     generatedAt,
			"updated_at":       time.Now(),
		},
		"$unset": bson.M{"last_error": ""},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRelated returns finished sibling items of the same project, newest first.
func (r *ContentItemRepository) ListRelated(ctx context.Context, projectID, excludeID primitive.ObjectID, limit int) ([]models.RelatedContent, error) {
	if limit <= 0 {
		return nil, nil
	}
	filter := bson.M{
		"project_id": projectID,
		"_id":        bson.M{"$ne": excludeID},
		"status":     bson.M{"$in": []models.ContentStatus{models.ContentReadyToPublish, models.ContentPublished}},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "generated_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"title": 1, "slug": 1})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var related []models.RelatedContent
	if err := cur.All(ctx, &related); err != nil {
		return nil, err
	}
	return related, nil
}
