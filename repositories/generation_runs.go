package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"content-forge/db"
	"content-forge/models"
)

type GenerationRunRepository struct {
	col *mongo.Collection
}

func NewGenerationRunRepository(d *mongo.Database) *GenerationRunRepository {
	return &GenerationRunRepository{col: d.Collection(db.GenerationRunsCollection)}
}

// Start creates the run for a content item, or resets the existing one in place.
// A reset keeps only the qualityControl artifact subtree so the quality budget
// carries over to the next attempt.
func (r *GenerationRunRepository) Start(ctx context.Context, item *models.ContentItem, opts models.RunOptions) (*models.GenerationRun, error) {
	for attempt := 0; attempt < 2; attempt++ {
		existing, err := r.FindByContentItemID(ctx, item.ID)
		switch {
		case err == nil:
			return r.reset(ctx, existing, opts)
		case err != ErrNotFound:
			return nil, err
		}

		now := time.Now()
		run := &models.GenerationRun{
			CreatedAt:     now,
			UpdatedAt:     now,
			ContentItemID: item.ID,
			OwnerID:       item.OwnerID,
			ProjectID:     item.ProjectID,
			Status:        models.RunScheduled,
			Artifacts:     models.Artifacts{},
			Options:       opts,
			StartedAt:     now,
		}
		res, err := r.col.InsertOne(ctx, run)
		if mongo.IsDuplicateKeyError(err) {
			// another caller created it first; reset that one
			continue
		}
		if err != nil {
			return nil, err
		}
		run.ID, _ = res.InsertedID.(primitive.ObjectID)
		return run, nil
	}
	return nil, fmt.Errorf("start run for content %s: concurrent creation", item.ID.Hex())
}

func (r *GenerationRunRepository) reset(ctx context.Context, run *models.GenerationRun, opts models.RunOptions) (*models.GenerationRun, error) {
	artifacts := models.Artifacts{}
	if qc, ok := run.Artifacts[models.ArtifactQualityControl]; ok {
		artifacts[models.ArtifactQualityControl] = qc
	}
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"status":          models.RunScheduled,
			"progress":        0,
			"artifacts":       artifacts,
			"options":         opts,
			"publish_ready":   false,
			"credits_charged": false,
			"started_at":      now,
			"updated_at":      now,
		},
		"$unset": bson.M{"error": "", "error_details": "", "completed_at": ""},
		"$inc":   bson.M{"artifacts_version": 1},
	}
	after := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var out models.GenerationRun
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": run.ID}, update, after).Decode(&out); err != nil {
		return nil, notFound(err)
	}
	out.Artifacts = NormalizeArtifacts(out.Artifacts)
	return &out, nil
}

// FindByID returns a run or ErrNotFound.
func (r *GenerationRunRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.GenerationRun, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *GenerationRunRepository) FindByContentItemID(ctx context.Context, contentItemID primitive.ObjectID) (*models.GenerationRun, error) {
	return r.findOne(ctx, bson.M{"content_item_id": contentItemID})
}

// FindByCorrelationID resolves the run parked on an async research request.
func (r *GenerationRunRepository) FindByCorrelationID(ctx context.Context, correlationID string) (*models.GenerationRun, error) {
	return r.findOne(ctx, bson.M{"artifacts.research.correlationId": correlationID})
}

func (r *GenerationRunRepository) findOne(ctx context.Context, filter bson.M) (*models.GenerationRun, error) {
	var run models.GenerationRun
	if err := r.col.FindOne(ctx, filter).Decode(&run); err != nil {
		return nil, notFound(err)
	}
	run.Artifacts = NormalizeArtifacts(run.Artifacts)
	return &run, nil
}

// UpdateStatus sets status, progress and any extra top-level fields.
// Returns false when no run matched.
func (r *GenerationRunRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.RunStatus, progress int, extra map[string]any) (bool, error) {
	set := bson.M{
		"status":     status,
		"progress":   progress,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		set[k] = v
	}
	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// MarkFailed records the terminal failure of a run.
func (r *GenerationRunRepository) MarkFailed(ctx context.Context, id primitive.ObjectID, message, details string) (bool, error) {
	return r.UpdateStatus(ctx, id, models.RunFailed, 100, map[string]any{
		"error":         message,
		"error_details": details,
	})
}

// MarkCompleted sets the terminal success state. Pass a session context to join a transaction.
func (r *GenerationRunRepository) MarkCompleted(ctx context.Context, id primitive.ObjectID, publishReady bool) error {
	now := time.Now()
	res, err := r.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"status":        models.RunCompleted,
			"progress":      100,
			"publish_ready": publishReady,
			"completed_at":  now,
			"updated_at":    now,
		},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// LoadArtifacts returns the artifacts document and its version token.
func (r *GenerationRunRepository) LoadArtifacts(ctx context.Context, id primitive.ObjectID) (models.Artifacts, int64, error) {
	var doc struct {
		Artifacts        models.Artifacts `bson:"artifacts"`
		ArtifactsVersion int64            `bson:"artifacts_version"`
	}
	opts := options.FindOne().SetProjection(bson.M{"artifacts": 1, "artifacts_version": 1})
	if err := r.col.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc); err != nil {
		return nil, 0, notFound(err)
	}
	artifacts := NormalizeArtifacts(doc.Artifacts)
	if artifacts == nil {
		artifacts = models.Artifacts{}
	}
	return artifacts, doc.ArtifactsVersion, nil
}

// SwapArtifacts replaces the artifacts document if the version still matches.
// Returns false when another writer got there first.
func (r *GenerationRunRepository) SwapArtifacts(ctx context.Context, id primitive.ObjectID, version int64, artifacts models.Artifacts) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "artifacts_version": version},
		bson.M{
			"$set": bson.M{"artifacts": artifacts, "updated_at": time.Now()},
			"$inc": bson.M{"artifacts_version": 1},
		},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// ClaimCredits flips credits_charged on a run that has not been charged yet.
// Returns false when the run was already charged.
func (r *GenerationRunRepository) ClaimCredits(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "credits_charged": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{"credits_charged": true, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// NormalizeArtifacts converts nested bson documents and arrays into plain maps
// and slices so artifacts can be deep-merged and re-encoded as JSON.
func NormalizeArtifacts(a models.Artifacts) models.Artifacts {
	if a == nil {
		return nil
	}
	out := make(models.Artifacts, len(a))
	for k, v := range a {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case primitive.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalizeValue(e.Value)
		}
		return m
	case primitive.M:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = normalizeValue(e)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = normalizeValue(e)
		}
		return m
	case primitive.A:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = normalizeValue(e)
		}
		return s
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = normalizeValue(e)
		}
		return s
	case primitive.DateTime:
		return t.Time().UTC()
	default:
		return v
	}
}
