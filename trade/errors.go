package trade

import "errors"

var (
	// ErrInvalidAmount signals a zero or negative bid amount.
	ErrInvalidAmount = errors.New("trade: bid amount must be positive")
	// ErrProductNotFound signals the product does not exist.
	ErrProductNotFound = errors.New("trade: product not found")
	// ErrBidNotFound signals the bid does not exist.
	ErrBidNotFound = errors.New("trade: bid not found")
	// ErrNotBuyer signals a non-buyer principal attempted to bid.
	ErrNotBuyer = errors.New("trade: only buyers can place bids")
	// ErrOwnProduct signals a seller bidding on their own listing.
	ErrOwnProduct = errors.New("trade: sellers cannot bid on their own product")
	// ErrNotOwner signals the acting user does not own the product.
	ErrNotOwner = errors.New("trade: product does not belong to user")
	// ErrBiddingOver signals the auction is closed to new or updated bids.
	ErrBiddingOver = errors.New("trade: bidding is over for this product")
	// ErrAlreadyDecided signals a bid has already been accepted for the product.
	ErrAlreadyDecided = errors.New("trade: a bid has already been accepted for this product")
)
