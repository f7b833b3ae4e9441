package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound signals the requested listing does not exist.
	ErrNotFound = errors.New("product: not found")
	// ErrInvalidPrice signals a negative asking price.
	ErrInvalidPrice = errors.New("product: price must not be negative")
)

// Repository provides data access for product listings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// listingColumns includes the accepted-bid flag so callers can derive the
// auction state without a second query.
const listingColumns = `p.id, p.seller_id, p.name, p.description, p.price, p.condition,
	p.is_available, p.is_bidding_over, p.bid_start_time, p.created_at, p.updated_at,
	EXISTS (SELECT 1 FROM bids b WHERE b.product_id = p.id AND b.is_accepted) AS has_accepted_bid`

// Create inserts a new listing for the seller.
func (r *Repository) Create(ctx context.Context, params CreateParams) (Listing, error) {
	if params.Name == "" {
		return Listing{}, fmt.Errorf("product: name is required")
	}
	if params.Price.IsNegative() {
		return Listing{}, ErrInvalidPrice
	}
	condition := params.Condition
	if condition == "" {
		condition = ConditionFairlyUsed
	}

	// a brand-new listing cannot have an accepted bid yet
	const insertSQL = `
		INSERT INTO products (seller_id, name, description, price, condition)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, seller_id, name, description, price, condition,
		          is_available, is_bidding_over, bid_start_time, created_at, updated_at,
		          false AS has_accepted_bid
	`

	listing, err := scanListing(r.pool.QueryRow(ctx, insertSQL,
		params.SellerID,
		params.Name,
		params.Description,
		params.Price,
		condition,
	))
	if err != nil {
		return Listing{}, fmt.Errorf("product: insert: %w", err)
	}

	return listing, nil
}

// GetByID fetches a listing by its primary key.
func (r *Repository) GetByID(ctx context.Context, id string) (Listing, error) {
	query := fmt.Sprintf(`SELECT %s FROM products p WHERE p.id = $1`, listingColumns)

	listing, err := scanListing(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Listing{}, ErrNotFound
		}
		return Listing{}, fmt.Errorf("product: query by id: %w", err)
	}

	return listing, nil
}

// ListAvailable fetches up to limit open listings, newest first.
func (r *Repository) ListAvailable(ctx context.Context, limit int) ([]Listing, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		WHERE p.is_available
		ORDER BY p.created_at DESC
		LIMIT $1
	`, listingColumns)

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("product: list available: %w", err)
	}
	defer rows.Close()

	listings := make([]Listing, 0, limit)
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("product: scan listing: %w", err)
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("product: iterate listings: %w", err)
	}

	return listings, nil
}

func scanListing(row pgx.Row) (Listing, error) {
	var l Listing
	err := row.Scan(
		&l.ID,
		&l.SellerID,
		&l.Name,
		&l.Description,
		&l.Price,
		&l.Condition,
		&l.IsAvailable,
		&l.IsBiddingOver,
		&l.BidStartTime,
		&l.CreatedAt,
		&l.UpdatedAt,
		&l.HasAcceptedBid,
	)
	if err != nil {
		return Listing{}, err
	}
	return l, nil
}
