package rating

import "time"

// Record mirrors the ratings table: one review per (buyer, seller) pair.
type Record struct {
	ID        string
	BuyerID   string
	SellerID  string
	Rating    int
	Review    *string
	CreatedAt time.Time
}

// CreateParams enumerates the fields of a new rating.
type CreateParams struct {
	BuyerID  string
	SellerID string
	Rating   int
	Review   *string
}
