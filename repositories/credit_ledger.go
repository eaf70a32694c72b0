package repositories

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"content-forge/collaborators"
	"content-forge/db"
	"content-forge/models"
)

var (
	errAlreadyCharged      = errors.New("run already charged")
	errInsufficientCredits = errors.New("insufficient credits")
)

// CreditLedger deducts generation credits from a user's balance, at most once per run.
type CreditLedger struct {
	tx    *db.Transactor
	runs  *GenerationRunRepository
	users *UserRepository
	txns  *CreditTransactionRepository
}

func NewCreditLedger(tx *db.Transactor, runs *GenerationRunRepository, users *UserRepository, txns *CreditTransactionRepository) *CreditLedger {
	return &CreditLedger{tx: tx, runs: runs, users: users, txns: txns}
}

// Deduct claims the run's charge flag, decrements the balance and writes a
// ledger entry in one transaction. A run that was already charged is reported
// as DeductAlreadyCharged without touching the balance.
func (l *CreditLedger) Deduct(ctx context.Context, userID, runID primitive.ObjectID, amount int) (collaborators.DeductOutcome, error) {
	err := l.tx.WithTransaction(ctx, func(ctx context.Context) error {
		claimed, err := l.runs.ClaimCredits(ctx, runID)
		if err != nil {
			return err
		}
		if !claimed {
			return errAlreadyCharged
		}
		ok, err := l.users.DecrementCredits(ctx, userID, amount)
		if err != nil {
			return err
		}
		if !ok {
			return errInsufficientCredits
		}
		return l.txns.Insert(ctx, models.CreditTransaction{
			UserID: userID,
			RunID:  runID,
			Amount: -amount,
			Reason: "content generation",
		})
	})
	return deductOutcome(err)
}

// deductOutcome maps the transaction result to an outcome. Rolled-back
// sentinel errors are outcomes, not failures.
func deductOutcome(err error) (collaborators.DeductOutcome, error) {
	switch {
	case err == nil:
		return collaborators.DeductCharged, nil
	case errors.Is(err, errAlreadyCharged):
		return collaborators.DeductAlreadyCharged, nil
	case errors.Is(err, errInsufficientCredits):
		return collaborators.DeductInsufficient, nil
	default:
		return collaborators.DeductInsufficient, err
	}
}
