package db

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"content-forge/config"
)

var (
	clientOnce sync.Once
	client     *mongo.Client
	db         *mongo.Database
)

// Collection names.
const (
	ContentItemsCollection       = "content_items"
	GenerationRunsCollection     = "generation_runs"
	UsersCollection              = "users"
	CreditTransactionsCollection = "credit_transactions"
	AILogsCollection             = "ai_logs"
)

// Init initializes the global Mongo client and database using config values.
func Init(ctx context.Context) error {
	var initErr error
	clientOnce.Do(func() {
		cfg := config.GetConfig()
		uri := cfg.Mongo.URI

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		cl, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			initErr = err
			return
		}
		if err := cl.Ping(ctx, readpref.Primary()); err != nil {
			initErr = err
			return
		}
		client = cl
		db = client.Database(cfg.Mongo.DBName)

		if err := ensureIndexes(ctx, db); err != nil {
			initErr = err
			return
		}
		config.Logger.Info("MongoDB connected and indexes ensured")
	})
	return initErr
}

func Client() *mongo.Client     { return client }
func Database() *mongo.Database { return db }

// Disconnect closes the global client if it was opened.
func Disconnect(ctx context.Context) error {
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

func ensureIndexes(ctx context.Context, d *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		// one run per content item, reset in place on regeneration
		GenerationRunsCollection: {
			{
				Keys:    bson.D{{Key: "content_item_id", Value: 1}},
				Options: options.Index().SetName("uniq_content_item_id").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "artifacts.research.correlationId", Value: 1}},
				Options: options.Index().SetName("idx_research_correlation_id").SetSparse(true),
			},
			{
				Keys:    bson.D{{Key: "status", Value: 1}, {Key: "updated_at", Value: -1}},
				Options: options.Index().SetName("idx_status_updated_at"),
			},
		},
		ContentItemsCollection: {
			{
				Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "status", Value: 1}},
				Options: options.Index().SetName("idx_project_status"),
			},
		},
		UsersCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("idx_email"),
			},
		},
		CreditTransactionsCollection: {
			{
				Keys:    bson.D{{Key: "run_id", Value: 1}},
				Options: options.Index().SetName("idx_run_id"),
			},
		},
		AILogsCollection: {
			{
				Keys:    bson.D{{Key: "run_id", Value: 1}, {Key: "requested_at", Value: -1}},
				Options: options.Index().SetName("idx_run_requested_at"),
			},
		},
	}
	for name, models := range indexes {
		if _, err := d.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}
