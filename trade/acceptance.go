package trade

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// AcceptanceStore defines the data access required by the acceptance engine.
type AcceptanceStore interface {
	ExecuteAcceptTx(ctx context.Context, tx pgx.Tx, bidID, actingUserID string) (AcceptReceipt, error)
}

// Acceptance selects the single winning bid for a product and closes the
// auction. Concurrent Accept calls on the same product serialize on the
// product row lock; only one can succeed.
type Acceptance struct {
	pool  TxBeginner
	store AcceptanceStore
}

func NewAcceptance(pool TxBeginner, store AcceptanceStore) *Acceptance {
	if store == nil {
		store = NewRepository()
	}
	return &Acceptance{
		pool:  pool,
		store: store,
	}
}

// Accept marks the bid as the auction winner on behalf of actingUserID, who
// must be the product's seller. The state change and the notification
// enqueues commit atomically; actual mail delivery happens later and cannot
// affect the outcome.
func (a *Acceptance) Accept(ctx context.Context, bidID, actingUserID string) (AcceptReceipt, error) {
	if bidID == "" {
		return AcceptReceipt{}, fmt.Errorf("trade: missing bid id")
	}
	if actingUserID == "" {
		return AcceptReceipt{}, fmt.Errorf("trade: missing acting user id")
	}

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return AcceptReceipt{}, fmt.Errorf("trade: begin accept tx: %w", err)
	}
	defer tx.Rollback(ctx)

	receipt, err := a.store.ExecuteAcceptTx(ctx, tx, bidID, actingUserID)
	if err != nil {
		return AcceptReceipt{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return AcceptReceipt{}, fmt.Errorf("trade: commit accept tx: %w", err)
	}

	return receipt, nil
}
