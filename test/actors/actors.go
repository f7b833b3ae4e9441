package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"buyshop/notify"
	"buyshop/product"
	"buyshop/trade"
)

// expectedSubmitErr reports whether a bid submission failure is a legal
// outcome under contention rather than a defect.
func expectedSubmitErr(err error) bool {
	return errors.Is(err, trade.ErrBiddingOver) ||
		errors.Is(err, trade.ErrProductNotFound) ||
		errors.Is(err, trade.ErrOwnProduct)
}

// Bidder hammers random open products with bids through the real ledger.
// The product may close between pick and submit; the rejection is the
// behavior under test, not a failure.
func Bidder(ctx context.Context, pool *pgxpool.Pool, buyerID string, stop <-chan struct{}) error {
	ledger := trade.NewLedger(pool, nil)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		var productID string
		err := pool.QueryRow(ctx, `
			SELECT id FROM products WHERE NOT is_bidding_over ORDER BY random() LIMIT 1
		`).Scan(&productID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				time.Sleep(30 * time.Millisecond)
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("bidder pick product: %w", err)
		}
		amount := decimal.NewFromInt(int64(1 + rand.Intn(500)))
		if _, err := ledger.SubmitBid(ctx, trade.SubmitBidParams{
			ProductID: productID,
			BidderID:  buyerID,
			Amount:    amount,
		}); err != nil && !expectedSubmitErr(err) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("bidder submit: %w", err)
		}
		time.Sleep(time.Duration(10+rand.Intn(20)) * time.Millisecond)
	}
}

// Acceptor accepts a random pending bid on one of the seller's open products.
// Losing the race to another acceptor or to the expiry sweeper is expected.
func Acceptor(ctx context.Context, pool *pgxpool.Pool, sellerID string, stop <-chan struct{}) error {
	acceptance := trade.NewAcceptance(pool, nil)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		var bidID string
		err := pool.QueryRow(ctx, `
			SELECT b.id
			FROM bids b
			JOIN products p ON p.id = b.product_id
			WHERE p.seller_id = $1 AND NOT p.is_bidding_over
			ORDER BY random()
			LIMIT 1
		`, sellerID).Scan(&bidID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				time.Sleep(30 * time.Millisecond)
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("acceptor pick bid: %w", err)
		}

		if _, err := acceptance.Accept(ctx, bidID, sellerID); err != nil {
			switch {
			case errors.Is(err, trade.ErrBiddingOver),
				errors.Is(err, trade.ErrAlreadyDecided),
				errors.Is(err, trade.ErrBidNotFound):
				// lost the race
			default:
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("acceptor accept: %w", err)
			}
		}
		time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
	}
}

// ExpirySweeper runs the real sweeper with a clock pushed past the bid
// window, so every started auction is immediately expirable. This keeps the
// sweeper and acceptors permanently fighting over the same product rows.
func ExpirySweeper(ctx context.Context, pool *pgxpool.Pool, log *zap.Logger, stop <-chan struct{}) error {
	sweeper := trade.NewSweeper(pool, log)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		if _, err := sweeper.Sweep(ctx, time.Now().UTC().Add(trade.BidWindow+time.Minute)); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("sweeper: %w", err)
		}
		time.Sleep(time.Duration(50+rand.Intn(100)) * time.Millisecond)
	}
}

// Relister keeps the market stocked: closed auctions pile up fast under the
// skewed sweeper clock, so fresh listings keep the bidders busy.
func Relister(ctx context.Context, pool *pgxpool.Pool, sellerID string, stop <-chan struct{}) error {
	repo := product.NewRepository(pool)
	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		if _, err := repo.Create(ctx, product.CreateParams{
			SellerID: sellerID,
			Name:     fmt.Sprintf("Restock %d-%d", rand.Int63(), i),
			Price:    decimal.NewFromInt(int64(10 + rand.Intn(90))),
		}); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("relister create: %w", err)
		}
		time.Sleep(time.Duration(100+rand.Intn(200)) * time.Millisecond)
	}
}

// flakyMailer fails roughly one delivery in ten to exercise the outbox retry
// path.
type flakyMailer struct{}

func (flakyMailer) Send(_ context.Context, _ notify.Email) error {
	if rand.Intn(10) == 0 {
		return errors.New("simulated smtp failure")
	}
	return nil
}

// OutboxDrainer runs the real outbox worker against a flaky mailer.
func OutboxDrainer(ctx context.Context, pool *pgxpool.Pool, log *zap.Logger, stop <-chan struct{}) error {
	worker := notify.NewWorker(pool, flakyMailer{}, log, 3)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		if _, err := worker.DrainOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("outbox drain: %w", err)
		}
		time.Sleep(100 * time.Millisecond)
	}
}
