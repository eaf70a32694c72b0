package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User holds the credit balance charged for publish-ready generations
// Collection: users
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
	Email     string             `bson:"email" json:"email"`
	Credits   int                `bson:"credits" json:"credits"`
}

// CreditTransaction is the ledger entry written for each deduction
// Collection: credit_transactions
type CreditTransaction struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	RunID     primitive.ObjectID `bson:"run_id" json:"run_id"`
	Amount    int                `bson:"amount" json:"amount"`
	Reason    string             `bson:"reason" json:"reason"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
