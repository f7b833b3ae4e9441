package trade

import (
	"fmt"

	"github.com/shopspring/decimal"

	"buyshop/notify"
)

// Mail composition for the trade subsystem. All sends go through the outbox;
// nothing here talks to a mail transport.

func newBidEmail(sellerName, sellerEmail, productName string, amount decimal.Decimal) notify.Email {
	return notify.Email{
		Recipient: sellerEmail,
		Subject:   fmt.Sprintf("New Bid for Your Product: %s", productName),
		Body: fmt.Sprintf(
			"Hello %s,\n\n"+
				"A new bid has been placed on your product:\n\n"+
				"Product Name: %s\n"+
				"Bid Amount: $%s\n\n"+
				"Please log in to your account to accept or reject the bid.\n",
			sellerName, productName, amount.StringFixed(2)),
	}
}

func bidAcceptedEmail(winnerEmail, productName string, amount decimal.Decimal) notify.Email {
	return notify.Email{
		Recipient: winnerEmail,
		Subject:   "Your bid was accepted!",
		Body: fmt.Sprintf("Your bid of $%s for %q was accepted! The seller will be in touch shortly.\n",
			amount.StringFixed(2), productName),
	}
}

func saleConfirmedEmail(sellerEmail, productName string, amount decimal.Decimal) notify.Email {
	return notify.Email{
		Recipient: sellerEmail,
		Subject:   "Bid accepted",
		Body: fmt.Sprintf("You accepted a bid of $%s for %q. We've notified the buyer.\n",
			amount.StringFixed(2), productName),
	}
}

func bidRejectedEmail(bidderEmail, productName string, amount decimal.Decimal) notify.Email {
	return notify.Email{
		Recipient: bidderEmail,
		Subject:   "Bid update",
		Body: fmt.Sprintf("Your bid of $%s for %q was not accepted.\n",
			amount.StringFixed(2), productName),
	}
}

func auctionExpiredEmail(sellerName, sellerEmail, productName string, bidCount int) notify.Email {
	plural := "s"
	if bidCount == 1 {
		plural = ""
	}
	return notify.Email{
		Recipient: sellerEmail,
		Subject:   fmt.Sprintf("Auction Ended: Bids on %q Have Expired", productName),
		Body: fmt.Sprintf(
			"Hello %s,\n\n"+
				"Your auction for the product %q has expired after 48 hours with no accepted bid.\n"+
				"You received a total of %d bid%s on this product.\n"+
				"Please log in to your dashboard to review any outstanding bids and decide whether to relist or accept a bid.\n",
			sellerName, productName, bidCount, plural),
	}
}
