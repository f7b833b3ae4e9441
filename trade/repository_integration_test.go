package trade

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

// TestAuctionLifecycle_Integration connects to a real PostgreSQL via
// DATABASE_URL and walks the whole auction lifecycle: bid upsert and clock
// start, single-winner acceptance, and expiry sweeping.
func TestAuctionLifecycle_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL is empty; set it to a live PostgreSQL to run integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pool: %v", err)
	}
	defer pool.Close()

	for _, table := range []string{"users", "products", "bids", "outbox"} {
		if !tableExists(ctx, t, pool, table) {
			t.Skipf("table %s missing; apply migrations first", table)
		}
	}

	h := &harness{t: t, ctx: ctx, pool: pool}

	seller := h.createUser("seller")
	buyerA := h.createUser("buyer")
	buyerB := h.createUser("buyer")

	ledger := NewLedger(pool, nil)
	acceptance := NewAcceptance(pool, nil)
	sweeper := NewSweeper(pool, testLogger())
	queries := NewBidQueries(pool)

	t.Run("first bid starts the auction clock exactly once", func(t *testing.T) {
		productID := h.createProduct(seller, "Vintage Camera")

		bid, err := ledger.SubmitBid(ctx, SubmitBidParams{
			ProductID: productID, BidderID: buyerA, Amount: decimal.NewFromInt(100),
		})
		if err != nil {
			t.Fatalf("submit first bid: %v", err)
		}

		start := h.bidStartTime(productID)
		if start == nil {
			t.Fatal("expected bid_start_time to be set by the first bid")
		}

		if _, err := ledger.SubmitBid(ctx, SubmitBidParams{
			ProductID: productID, BidderID: buyerB, Amount: decimal.NewFromInt(120),
		}); err != nil {
			t.Fatalf("submit second bid: %v", err)
		}

		after := h.bidStartTime(productID)
		if after == nil || !after.Equal(*start) {
			t.Fatalf("bid_start_time changed by a later bid: %v vs %v", after, start)
		}

		// re-submission updates the amount in place
		updated, err := ledger.SubmitBid(ctx, SubmitBidParams{
			ProductID: productID, BidderID: buyerA, Amount: decimal.NewFromInt(150),
		})
		if err != nil {
			t.Fatalf("resubmit bid: %v", err)
		}
		if updated.ID != bid.ID {
			t.Fatalf("resubmission created a new bid: %s vs %s", updated.ID, bid.ID)
		}
		if !updated.CreatedAt.Equal(bid.CreatedAt) {
			t.Fatalf("resubmission changed created_at: %v vs %v", updated.CreatedAt, bid.CreatedAt)
		}
		if !updated.Amount.Equal(decimal.NewFromInt(150)) {
			t.Fatalf("expected amount 150, got %s", updated.Amount)
		}
		if n := h.bidCountFor(productID, buyerA); n != 1 {
			t.Fatalf("expected 1 bid row for (product, bidder), got %d", n)
		}

		// a new-bid mail per submission, all enqueued not sent
		if n := h.outboxCount(TopicBidPlaced); n < 3 {
			t.Fatalf("expected at least 3 bid_placed mails, got %d", n)
		}
	})

	t.Run("seller cannot bid", func(t *testing.T) {
		productID := h.createProduct(seller, "Old Turntable")
		otherSeller := h.createUser("seller")

		_, err := ledger.SubmitBid(ctx, SubmitBidParams{
			ProductID: productID, BidderID: otherSeller, Amount: decimal.NewFromInt(10),
		})
		if !errors.Is(err, ErrNotBuyer) {
			t.Fatalf("expected ErrNotBuyer, got %v", err)
		}
		_, err = ledger.SubmitBid(ctx, SubmitBidParams{
			ProductID: productID, BidderID: seller, Amount: decimal.NewFromInt(10),
		})
		if !errors.Is(err, ErrOwnProduct) && !errors.Is(err, ErrNotBuyer) {
			t.Fatalf("expected own-product rejection, got %v", err)
		}
	})

	t.Run("accept picks exactly one winner and fans out mail", func(t *testing.T) {
		productID := h.createProduct(seller, "Road Bike")
		bidA := h.submit(ledger, productID, buyerA, 100)
		bidB := h.submit(ledger, productID, buyerB, 120)

		if _, err := acceptance.Accept(ctx, bidB.ID, buyerA); !errors.Is(err, ErrNotOwner) {
			t.Fatalf("expected ErrNotOwner for stranger accept, got %v", err)
		}

		receipt, err := acceptance.Accept(ctx, bidB.ID, seller)
		if err != nil {
			t.Fatalf("accept: %v", err)
		}
		if !receipt.Bid.IsAccepted {
			t.Fatal("expected accepted bid in receipt")
		}
		if receipt.RejectedCount != 1 {
			t.Fatalf("expected 1 rejection, got %d", receipt.RejectedCount)
		}

		available, over := h.productFlags(productID)
		if available || !over {
			t.Fatalf("expected product closed, got available=%v bidding_over=%v", available, over)
		}
		if n := h.acceptedCount(productID); n != 1 {
			t.Fatalf("expected exactly 1 accepted bid, got %d", n)
		}

		if _, err := acceptance.Accept(ctx, bidA.ID, seller); !errors.Is(err, ErrAlreadyDecided) {
			t.Fatalf("expected ErrAlreadyDecided on second accept, got %v", err)
		}
		if n := h.acceptedCount(productID); n != 1 {
			t.Fatalf("single-winner invariant violated: %d accepted bids", n)
		}

		// closed auction rejects further bid mutation
		if _, err := ledger.SubmitBid(ctx, SubmitBidParams{
			ProductID: productID, BidderID: buyerA, Amount: decimal.NewFromInt(500),
		}); !errors.Is(err, ErrBiddingOver) {
			t.Fatalf("expected ErrBiddingOver after close, got %v", err)
		}

		// a later sweep must not touch the accepted product
		h.backdateAuction(productID, 49*time.Hour)
		if _, err := sweeper.Sweep(ctx, time.Now().UTC()); err != nil {
			t.Fatalf("sweep after accept: %v", err)
		}
		if n := h.outboxCountFor(TopicAuctionExpired, productID); n != 0 {
			t.Fatalf("sweep touched an accepted product: %d expiry mails", n)
		}
	})

	t.Run("sweep closes only elapsed auctions and is idempotent", func(t *testing.T) {
		fresh := h.createProduct(seller, "Fresh Listing")
		noBids := h.createProduct(seller, "Unloved Listing")
		stale := h.createProduct(seller, "Stale Listing")

		h.submit(ledger, fresh, buyerA, 40)
		h.submit(ledger, stale, buyerA, 60)
		h.backdateAuction(stale, 49*time.Hour)

		if _, err := sweeper.Sweep(ctx, time.Now().UTC()); err != nil {
			t.Fatalf("sweep: %v", err)
		}

		if available, over := h.productFlags(fresh); !available || over {
			t.Fatal("sweep closed an auction inside its window")
		}
		if available, over := h.productFlags(noBids); !available || over {
			t.Fatal("sweep touched a product that never started")
		}
		if available, over := h.productFlags(stale); available || !over {
			t.Fatal("sweep did not close an elapsed auction")
		}
		if n := h.outboxCountFor(TopicAuctionExpired, stale); n != 1 {
			t.Fatalf("expected 1 expiry mail, got %d", n)
		}

		// no new qualifying products: a second sweep is a no-op
		if _, err := sweeper.Sweep(ctx, time.Now().UTC()); err != nil {
			t.Fatalf("second sweep: %v", err)
		}
		if n := h.outboxCountFor(TopicAuctionExpired, stale); n != 1 {
			t.Fatalf("second sweep re-closed the auction: %d expiry mails", n)
		}
	})

	t.Run("bids list in creation order for the owner only", func(t *testing.T) {
		productID := h.createProduct(seller, "Bookshelf")
		h.submit(ledger, productID, buyerA, 30)
		h.submit(ledger, productID, buyerB, 45)

		if _, err := queries.ListForProduct(ctx, productID, buyerA); !errors.Is(err, ErrNotOwner) {
			t.Fatalf("expected ErrNotOwner, got %v", err)
		}

		bids, err := queries.ListForProduct(ctx, productID, seller)
		if err != nil {
			t.Fatalf("list bids: %v", err)
		}
		if len(bids) != 2 {
			t.Fatalf("expected 2 bids, got %d", len(bids))
		}
		if bids[0].CreatedAt.After(bids[1].CreatedAt) {
			t.Fatal("bids not ordered by creation time")
		}
	})
}

type harness struct {
	t    *testing.T
	ctx  context.Context
	pool *pgxpool.Pool
}

func (h *harness) createUser(role string) string {
	h.t.Helper()
	var id string
	email := fmt.Sprintf("%s+%d@example.com", role, time.Now().UnixNano())
	if err := h.pool.QueryRow(h.ctx, `
		INSERT INTO users (email, full_name, role) VALUES ($1, $2, $3) RETURNING id
	`, email, "Test User", role).Scan(&id); err != nil {
		h.t.Fatalf("seed %s: %v", role, err)
	}
	return id
}

func (h *harness) createProduct(sellerID, name string) string {
	h.t.Helper()
	var id string
	if err := h.pool.QueryRow(h.ctx, `
		INSERT INTO products (seller_id, name, price) VALUES ($1, $2, 50) RETURNING id
	`, sellerID, name).Scan(&id); err != nil {
		h.t.Fatalf("seed product: %v", err)
	}
	return id
}

func (h *harness) submit(ledger *Ledger, productID, bidderID string, amount int64) Bid {
	h.t.Helper()
	bid, err := ledger.SubmitBid(h.ctx, SubmitBidParams{
		ProductID: productID, BidderID: bidderID, Amount: decimal.NewFromInt(amount),
	})
	if err != nil {
		h.t.Fatalf("submit bid: %v", err)
	}
	return bid
}

func (h *harness) bidStartTime(productID string) *time.Time {
	h.t.Helper()
	var start *time.Time
	if err := h.pool.QueryRow(h.ctx, `SELECT bid_start_time FROM products WHERE id=$1`, productID).Scan(&start); err != nil {
		h.t.Fatalf("read bid_start_time: %v", err)
	}
	return start
}

func (h *harness) productFlags(productID string) (available, over bool) {
	h.t.Helper()
	if err := h.pool.QueryRow(h.ctx, `SELECT is_available, is_bidding_over FROM products WHERE id=$1`, productID).Scan(&available, &over); err != nil {
		h.t.Fatalf("read product flags: %v", err)
	}
	return available, over
}

func (h *harness) backdateAuction(productID string, by time.Duration) {
	h.t.Helper()
	if _, err := h.pool.Exec(h.ctx, `
		UPDATE products SET bid_start_time = bid_start_time - make_interval(secs => $2) WHERE id = $1
	`, productID, by.Seconds()); err != nil {
		h.t.Fatalf("backdate auction: %v", err)
	}
}

func (h *harness) bidCountFor(productID, bidderID string) int {
	h.t.Helper()
	var n int
	if err := h.pool.QueryRow(h.ctx, `SELECT COUNT(*) FROM bids WHERE product_id=$1 AND bidder_id=$2`, productID, bidderID).Scan(&n); err != nil {
		h.t.Fatalf("count bids: %v", err)
	}
	return n
}

func (h *harness) acceptedCount(productID string) int {
	h.t.Helper()
	var n int
	if err := h.pool.QueryRow(h.ctx, `SELECT COUNT(*) FROM bids WHERE product_id=$1 AND is_accepted`, productID).Scan(&n); err != nil {
		h.t.Fatalf("count accepted bids: %v", err)
	}
	return n
}

func (h *harness) outboxCount(topic string) int {
	h.t.Helper()
	var n int
	if err := h.pool.QueryRow(h.ctx, `SELECT COUNT(*) FROM outbox WHERE topic=$1`, topic).Scan(&n); err != nil {
		h.t.Fatalf("count outbox: %v", err)
	}
	return n
}

func (h *harness) outboxCountFor(topic, productID string) int {
	h.t.Helper()
	// expiry mails embed the product name in the subject
	var name string
	if err := h.pool.QueryRow(h.ctx, `SELECT name FROM products WHERE id=$1`, productID).Scan(&name); err != nil {
		h.t.Fatalf("read product name: %v", err)
	}
	var n int
	if err := h.pool.QueryRow(h.ctx, `
		SELECT COUNT(*) FROM outbox WHERE topic=$1 AND payload->>'subject' LIKE '%' || $2 || '%'
	`, topic, name).Scan(&n); err != nil {
		h.t.Fatalf("count outbox for product: %v", err)
	}
	return n
}

func tableExists(ctx context.Context, t *testing.T, pool *pgxpool.Pool, name string) bool {
	t.Helper()
	var exists bool
	err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)`, name).Scan(&exists)
	if err != nil {
		t.Fatalf("check table %s: %v", name, err)
	}
	return exists
}
