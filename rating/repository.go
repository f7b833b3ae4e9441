package rating

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrInvalidRating signals a rating outside the 1..5 range.
	ErrInvalidRating = errors.New("rating: rating must be between 1 and 5")
	// ErrAlreadyRated signals the buyer already rated this seller.
	ErrAlreadyRated = errors.New("rating: buyer already rated this seller")
)

// Repository handles data access for seller ratings.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts the rating and recomputes the seller's average in the same
// transaction, so the denormalized users.rating column never drifts.
func (r *Repository) Create(ctx context.Context, params CreateParams) (Record, error) {
	if params.Rating < 1 || params.Rating > 5 {
		return Record{}, ErrInvalidRating
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("rating: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var rec Record
	err = tx.QueryRow(ctx, `
		INSERT INTO ratings (buyer_id, seller_id, rating, review)
		VALUES ($1, $2, $3, $4)
		RETURNING id, buyer_id, seller_id, rating, review, created_at
	`, params.BuyerID, params.SellerID, params.Rating, params.Review).Scan(
		&rec.ID, &rec.BuyerID, &rec.SellerID, &rec.Rating, &rec.Review, &rec.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Record{}, ErrAlreadyRated
		}
		return Record{}, fmt.Errorf("rating: insert: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE users
		SET rating = (SELECT AVG(rating) FROM ratings WHERE seller_id = $1),
		    updated_at = now()
		WHERE id = $1
	`, params.SellerID); err != nil {
		return Record{}, fmt.Errorf("rating: recompute seller average: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("rating: commit: %w", err)
	}

	return rec, nil
}

// ListForSeller returns the seller's ratings, newest first.
func (r *Repository) ListForSeller(ctx context.Context, sellerID string) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, buyer_id, seller_id, rating, review, created_at
		FROM ratings
		WHERE seller_id = $1
		ORDER BY created_at DESC
	`, sellerID)
	if err != nil {
		return nil, fmt.Errorf("rating: list for seller: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, 8)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.BuyerID, &rec.SellerID, &rec.Rating, &rec.Review, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("rating: scan: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rating: iterate: %w", err)
	}

	return records, nil
}
