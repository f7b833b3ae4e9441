package trade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"buyshop/auth"
	"buyshop/notify"
)

// Repository executes the trade subsystem's writes inside transactions owned
// by the calling service. Every method that takes a pgx.Tx relies on the
// caller's commit/rollback.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// productRow is the slice of a product (plus its seller) the trade writes need.
type productRow struct {
	id            string
	name          string
	sellerID      string
	sellerName    string
	sellerEmail   string
	isAvailable   bool
	isBiddingOver bool
	bidStartTime  *time.Time
}

// lockProduct loads the product and its seller under a row lock on the
// product. The lock serializes submit, accept, and sweep-close for the same
// product, which is what upholds the single-winner and single-closure
// invariants.
func lockProduct(ctx context.Context, tx pgx.Tx, productID string) (productRow, error) {
	const q = `
		SELECT p.id, p.name, p.seller_id, u.full_name, u.email,
		       p.is_available, p.is_bidding_over, p.bid_start_time
		FROM products p
		JOIN users u ON u.id = p.seller_id
		WHERE p.id = $1
		FOR UPDATE OF p
	`

	var pr productRow
	err := tx.QueryRow(ctx, q, productID).Scan(
		&pr.id,
		&pr.name,
		&pr.sellerID,
		&pr.sellerName,
		&pr.sellerEmail,
		&pr.isAvailable,
		&pr.isBiddingOver,
		&pr.bidStartTime,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return productRow{}, ErrProductNotFound
		}
		return productRow{}, fmt.Errorf("trade: lock product: %w", err)
	}
	return pr, nil
}

// ExecuteSubmitTx creates or amount-updates the bidder's bid on the product
// and, on the product's first ever bid, starts the auction clock. The new-bid
// mail to the seller is enqueued in the same transaction.
func (r *Repository) ExecuteSubmitTx(ctx context.Context, tx pgx.Tx, params SubmitBidParams) (Bid, error) {
	pr, err := lockProduct(ctx, tx, params.ProductID)
	if err != nil {
		return Bid{}, err
	}

	if pr.isBiddingOver || !pr.isAvailable {
		return Bid{}, ErrBiddingOver
	}
	if params.BidderID == pr.sellerID {
		return Bid{}, ErrOwnProduct
	}

	var role auth.Role
	if err := tx.QueryRow(ctx, `SELECT role FROM users WHERE id = $1`, params.BidderID).Scan(&role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bid{}, fmt.Errorf("trade: bidder %s not found", params.BidderID)
		}
		return Bid{}, fmt.Errorf("trade: fetch bidder role: %w", err)
	}
	if role != auth.RoleBuyer {
		return Bid{}, ErrNotBuyer
	}

	bid, err := upsertBid(ctx, tx, params)
	if err != nil {
		return Bid{}, err
	}

	// bid_start_time is null exactly until the first bid ever; the product
	// lock makes this check-then-set race free.
	if pr.bidStartTime == nil {
		if _, err := tx.Exec(ctx, `
			UPDATE products SET bid_start_time = now(), updated_at = now() WHERE id = $1
		`, pr.id); err != nil {
			return Bid{}, fmt.Errorf("trade: start auction clock: %w", err)
		}
	}

	if err := notify.Enqueue(ctx, tx, TopicBidPlaced, newBidEmail(pr.sellerName, pr.sellerEmail, pr.name, bid.Amount)); err != nil {
		return Bid{}, err
	}

	return bid, nil
}

// upsertBid updates the amount of an existing (product, bidder) bid in place
// or inserts a fresh one. CreatedAt and IsAccepted survive re-submission.
func upsertBid(ctx context.Context, tx pgx.Tx, params SubmitBidParams) (Bid, error) {
	const bidColumns = `id, product_id, bidder_id, amount, is_accepted, created_at, updated_at`

	var existingID string
	err := tx.QueryRow(ctx, `
		SELECT id FROM bids WHERE product_id = $1 AND bidder_id = $2
	`, params.ProductID, params.BidderID).Scan(&existingID)

	switch {
	case err == nil:
		row := tx.QueryRow(ctx, `
			UPDATE bids SET amount = $1, updated_at = now()
			WHERE id = $2
			RETURNING `+bidColumns, params.Amount, existingID)
		bid, err := scanBid(row)
		if err != nil {
			return Bid{}, fmt.Errorf("trade: update bid amount: %w", err)
		}
		return bid, nil
	case errors.Is(err, pgx.ErrNoRows):
		row := tx.QueryRow(ctx, `
			INSERT INTO bids (product_id, bidder_id, amount)
			VALUES ($1, $2, $3)
			RETURNING `+bidColumns, params.ProductID, params.BidderID, params.Amount)
		bid, err := scanBid(row)
		if err != nil {
			return Bid{}, fmt.Errorf("trade: insert bid: %w", err)
		}
		return bid, nil
	default:
		return Bid{}, fmt.Errorf("trade: check existing bid: %w", err)
	}
}

// ExecuteAcceptTx transitions exactly one bid to accepted, closes the auction,
// and enqueues the winner, seller, and losing-bidder mails. The caller is the
// only committer; any error here leaves no partial state.
func (r *Repository) ExecuteAcceptTx(ctx context.Context, tx pgx.Tx, bidID, actingUserID string) (AcceptReceipt, error) {
	const q = `
		SELECT b.id, b.product_id, b.bidder_id, b.amount, b.is_accepted, b.created_at, b.updated_at,
		       p.name, p.seller_id, p.is_bidding_over,
		       w.email,
		       s.full_name, s.email
		FROM bids b
		JOIN products p ON p.id = b.product_id
		JOIN users w ON w.id = b.bidder_id
		JOIN users s ON s.id = p.seller_id
		WHERE b.id = $1
		FOR UPDATE OF b, p
	`

	var (
		bid         Bid
		productName string
		sellerID    string
		biddingOver bool
		winnerEmail string
		sellerName  string
		sellerEmail string
	)
	err := tx.QueryRow(ctx, q, bidID).Scan(
		&bid.ID, &bid.ProductID, &bid.BidderID, &bid.Amount, &bid.IsAccepted, &bid.CreatedAt, &bid.UpdatedAt,
		&productName, &sellerID, &biddingOver,
		&winnerEmail,
		&sellerName, &sellerEmail,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AcceptReceipt{}, ErrBidNotFound
		}
		return AcceptReceipt{}, fmt.Errorf("trade: load bid for accept: %w", err)
	}

	if actingUserID != sellerID {
		return AcceptReceipt{}, ErrNotOwner
	}

	// Re-check under the product lock: another Accept or a sweep-close may
	// have won the race before we acquired it.
	var hasAccepted bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM bids WHERE product_id = $1 AND is_accepted)
	`, bid.ProductID).Scan(&hasAccepted); err != nil {
		return AcceptReceipt{}, fmt.Errorf("trade: check decided: %w", err)
	}
	if hasAccepted {
		return AcceptReceipt{}, ErrAlreadyDecided
	}
	if biddingOver {
		return AcceptReceipt{}, ErrBiddingOver
	}

	if err := tx.QueryRow(ctx, `
		UPDATE bids SET is_accepted = true, updated_at = now() WHERE id = $1 RETURNING updated_at
	`, bid.ID).Scan(&bid.UpdatedAt); err != nil {
		return AcceptReceipt{}, fmt.Errorf("trade: mark bid accepted: %w", err)
	}
	bid.IsAccepted = true

	if _, err := tx.Exec(ctx, `
		UPDATE products SET is_bidding_over = true, is_available = false, updated_at = now() WHERE id = $1
	`, bid.ProductID); err != nil {
		return AcceptReceipt{}, fmt.Errorf("trade: close auction: %w", err)
	}

	if err := notify.Enqueue(ctx, tx, TopicBidAccepted, bidAcceptedEmail(winnerEmail, productName, bid.Amount)); err != nil {
		return AcceptReceipt{}, err
	}
	if err := notify.Enqueue(ctx, tx, TopicSaleConfirmed, saleConfirmedEmail(sellerEmail, productName, bid.Amount)); err != nil {
		return AcceptReceipt{}, err
	}

	rejected, err := enqueueRejections(ctx, tx, bid.ProductID, bid.ID, productName)
	if err != nil {
		return AcceptReceipt{}, err
	}

	return AcceptReceipt{
		Bid:           bid,
		ProductName:   productName,
		WinnerEmail:   winnerEmail,
		RejectedCount: rejected,
	}, nil
}

func enqueueRejections(ctx context.Context, tx pgx.Tx, productID, winningBidID, productName string) (int, error) {
	rows, err := tx.Query(ctx, `
		SELECT u.email, b.amount
		FROM bids b
		JOIN users u ON u.id = b.bidder_id
		WHERE b.product_id = $1 AND b.id <> $2
	`, productID, winningBidID)
	if err != nil {
		return 0, fmt.Errorf("trade: list losing bids: %w", err)
	}
	defer rows.Close()

	var losers []notify.Email
	for rows.Next() {
		var (
			email  string
			amount decimal.Decimal
		)
		if err := rows.Scan(&email, &amount); err != nil {
			return 0, fmt.Errorf("trade: scan losing bid: %w", err)
		}
		losers = append(losers, bidRejectedEmail(email, productName, amount))
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("trade: iterate losing bids: %w", err)
	}

	for _, email := range losers {
		if err := notify.Enqueue(ctx, tx, TopicBidRejected, email); err != nil {
			return 0, err
		}
	}
	return len(losers), nil
}

func scanBid(row pgx.Row) (Bid, error) {
	var b Bid
	err := row.Scan(
		&b.ID,
		&b.ProductID,
		&b.BidderID,
		&b.Amount,
		&b.IsAccepted,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return Bid{}, err
	}
	return b, nil
}
