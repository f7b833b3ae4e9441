package trade

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// LedgerStore defines the data access required by the ledger.
type LedgerStore interface {
	ExecuteSubmitTx(ctx context.Context, tx pgx.Tx, params SubmitBidParams) (Bid, error)
}

// Ledger records bids. One active bid per (product, bidder); re-submission
// updates the amount in place.
type Ledger struct {
	pool  TxBeginner
	store LedgerStore
}

func NewLedger(pool TxBeginner, store LedgerStore) *Ledger {
	if store == nil {
		store = NewRepository()
	}
	return &Ledger{
		pool:  pool,
		store: store,
	}
}

// SubmitBid creates or updates the bidder's bid on a product in a single
// transaction, starting the auction window on the product's first bid.
// Validation, authorization, and conflict failures happen before any
// mutation is committed.
func (l *Ledger) SubmitBid(ctx context.Context, params SubmitBidParams) (Bid, error) {
	if params.ProductID == "" {
		return Bid{}, fmt.Errorf("trade: missing product id")
	}
	if params.BidderID == "" {
		return Bid{}, fmt.Errorf("trade: missing bidder id")
	}
	if !params.Amount.IsPositive() {
		return Bid{}, ErrInvalidAmount
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return Bid{}, fmt.Errorf("trade: begin submit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	bid, err := l.store.ExecuteSubmitTx(ctx, tx, params)
	if err != nil {
		return Bid{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Bid{}, fmt.Errorf("trade: commit submit tx: %w", err)
	}

	return bid, nil
}
