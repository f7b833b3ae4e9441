package trade

import (
	"time"

	"github.com/shopspring/decimal"
)

// BidWindow is how long an auction stays open after its first bid.
const BidWindow = 48 * time.Hour

// Outbox topics emitted by the trade subsystem.
const (
	TopicBidPlaced      = "trade.bid_placed"
	TopicBidAccepted    = "trade.bid_accepted"
	TopicBidRejected    = "trade.bid_rejected"
	TopicSaleConfirmed  = "trade.sale_confirmed"
	TopicAuctionExpired = "trade.auction_expired"
)

// Bid mirrors the bids table. A bidder holds at most one bid per product;
// resubmitting replaces the amount in place and leaves CreatedAt untouched.
type Bid struct {
	ID         string
	ProductID  string
	BidderID   string
	Amount     decimal.Decimal
	IsAccepted bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// BidSummary is a bid joined with its bidder, as shown to the owning seller.
type BidSummary struct {
	ID         string
	BidderID   string
	BidderName string
	Amount     decimal.Decimal
	IsAccepted bool
	CreatedAt  time.Time
}

// SubmitBidParams enumerates the inputs of a bid submission.
type SubmitBidParams struct {
	ProductID string
	BidderID  string
	Amount    decimal.Decimal
}

// AcceptReceipt describes the outcome of a successful acceptance.
type AcceptReceipt struct {
	Bid         Bid
	ProductName string
	WinnerEmail string
	// RejectedCount is how many losing bidders were queued a rejection notice.
	RejectedCount int
}
