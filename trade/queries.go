package trade

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BidQueries serves read-only bid views.
type BidQueries struct {
	pool *pgxpool.Pool
}

func NewBidQueries(pool *pgxpool.Pool) *BidQueries {
	return &BidQueries{pool: pool}
}

// ListForProduct returns the product's bids in creation order, visible only
// to the owning seller.
func (q *BidQueries) ListForProduct(ctx context.Context, productID, sellerID string) ([]BidSummary, error) {
	var ownerID string
	err := q.pool.QueryRow(ctx, `SELECT seller_id FROM products WHERE id = $1`, productID).Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("trade: verify owner: %w", err)
	}
	if ownerID != sellerID {
		return nil, ErrNotOwner
	}

	const query = `
		SELECT b.id, b.bidder_id, u.full_name, b.amount, b.is_accepted, b.created_at
		FROM bids b
		JOIN users u ON u.id = b.bidder_id
		WHERE b.product_id = $1
		ORDER BY b.created_at ASC
	`

	rows, err := q.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("trade: list bids: %w", err)
	}
	defer rows.Close()

	bids := make([]BidSummary, 0, 8)
	for rows.Next() {
		var b BidSummary
		if err := rows.Scan(&b.ID, &b.BidderID, &b.BidderName, &b.Amount, &b.IsAccepted, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("trade: scan bid: %w", err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trade: iterate bids: %w", err)
	}

	return bids, nil
}
