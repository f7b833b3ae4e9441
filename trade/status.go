package trade

import "time"

// AuctionState is derived state, never stored: the products table only carries
// bid_start_time and is_bidding_over, and the accepted bid distinguishes the
// two closed outcomes.
type AuctionState string

const (
	AuctionNotStarted     AuctionState = "not_started"
	AuctionOpen           AuctionState = "open"
	AuctionClosedAccepted AuctionState = "closed_accepted"
	AuctionClosedExpired  AuctionState = "closed_expired"
)

// StateOf derives the auction state of a product.
func StateOf(bidStartTime *time.Time, biddingOver, hasAcceptedBid bool) AuctionState {
	switch {
	case biddingOver && hasAcceptedBid:
		return AuctionClosedAccepted
	case biddingOver:
		return AuctionClosedExpired
	case bidStartTime == nil:
		return AuctionNotStarted
	default:
		return AuctionOpen
	}
}

// Deadline returns the instant at which an auction started at bidStartTime
// becomes eligible for expiry.
func Deadline(bidStartTime time.Time) time.Time {
	return bidStartTime.Add(BidWindow)
}

// WindowElapsed reports whether the auction window has fully elapsed at now.
// A nil bidStartTime means the auction never started and can never elapse.
func WindowElapsed(bidStartTime *time.Time, now time.Time) bool {
	if bidStartTime == nil {
		return false
	}
	return !now.Before(Deadline(*bidStartTime))
}
