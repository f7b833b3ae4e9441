package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// Condition describes the wear state of a listed item.
type Condition string

const (
	ConditionNew        Condition = "new"
	ConditionFairlyUsed Condition = "fairly_used"
	ConditionOld        Condition = "old"
)

// Listing mirrors the products table. The auction bookkeeping columns
// (IsAvailable, IsBiddingOver, BidStartTime) are owned by the trade package;
// everything else is catalog data.
type Listing struct {
	ID            string
	SellerID      string
	Name          string
	Description   string
	Price         decimal.Decimal
	Condition     Condition
	IsAvailable   bool
	IsBiddingOver bool
	BidStartTime  *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// HasAcceptedBid distinguishes the two closed outcomes when deriving
	// the auction state.
	HasAcceptedBid bool
}

// CreateParams enumerates the fields a seller supplies when listing an item.
type CreateParams struct {
	SellerID    string
	Name        string
	Description string
	Price       decimal.Decimal
	Condition   Condition
}
