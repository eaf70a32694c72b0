package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"content-forge/db"
	"content-forge/models"
)

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(d *mongo.Database) *UserRepository {
	return &UserRepository{col: d.Collection(db.UsersCollection)}
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// DecrementCredits subtracts amount only when the balance covers it.
// Returns false when the user is missing or the balance is too low.
func (r *UserRepository) DecrementCredits(ctx context.Context, id primitive.ObjectID, amount int) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "credits": bson.M{"$gte": amount}},
		bson.M{
			"$inc": bson.M{"credits": -amount},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

type CreditTransactionRepository struct {
	col *mongo.Collection
}

func NewCreditTransactionRepository(d *mongo.Database) *CreditTransactionRepository {
	return &CreditTransactionRepository{col: d.Collection(db.CreditTransactionsCollection)}
}

func (r *CreditTransactionRepository) Insert(ctx context.Context, tx models.CreditTransaction) error {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	_, err := r.col.InsertOne(ctx, tx)
	return err
}
