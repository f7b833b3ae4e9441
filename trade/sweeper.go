package trade

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"buyshop/notify"
)

const sweepConcurrency = 4

// Sweeper closes auctions whose 48-hour window elapsed with no accepted bid.
// Each product is closed in its own transaction so one bad row cannot stall
// the rest of the sweep.
type Sweeper struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func NewSweeper(pool *pgxpool.Pool, log *zap.Logger) *Sweeper {
	return &Sweeper{
		pool: pool,
		log:  log,
	}
}

// Run executes a sweep on every tick until the context is canceled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			closed, err := s.Sweep(ctx, time.Now().UTC())
			if err != nil {
				s.log.Error("expiry sweep failed", zap.Error(err))
				continue
			}
			if closed > 0 {
				s.log.Info("expiry sweep closed auctions", zap.Int("closed", closed))
			}
		}
	}
}

// Sweep closes every open auction whose window elapsed at now and returns how
// many it closed. Re-running with no new qualifying products is a no-op:
// the candidate filter excludes products that never started and products
// already closed by acceptance or a previous sweep.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id
		FROM products
		WHERE is_available
		  AND NOT is_bidding_over
		  AND bid_start_time IS NOT NULL
		  AND bid_start_time <= $1
	`, now.Add(-BidWindow))
	if err != nil {
		return 0, fmt.Errorf("trade: select expired candidates: %w", err)
	}

	var candidates []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("trade: scan candidate: %w", err)
		}
		candidates = append(candidates, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("trade: iterate candidates: %w", err)
	}

	var closed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)

	for _, id := range candidates {
		g.Go(func() error {
			ok, err := s.closeExpired(gctx, id, now)
			if err != nil {
				// products are independent: log and keep sweeping
				s.log.Error("close expired auction failed",
					zap.String("product_id", id), zap.Error(err))
				return nil
			}
			if ok {
				closed.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(closed.Load()), err
	}
	return int(closed.Load()), nil
}

// closeExpired closes one auction. It re-checks the filter conditions under
// the product row lock and skips silently when acceptance or another sweep
// got there first.
func (s *Sweeper) closeExpired(ctx context.Context, productID string, now time.Time) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("trade: begin close tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		name         string
		sellerName   string
		sellerEmail  string
		available    bool
		biddingOver  bool
		bidStartTime *time.Time
	)
	err = tx.QueryRow(ctx, `
		SELECT p.name, u.full_name, u.email, p.is_available, p.is_bidding_over, p.bid_start_time
		FROM products p
		JOIN users u ON u.id = p.seller_id
		WHERE p.id = $1
		FOR UPDATE OF p
	`, productID).Scan(&name, &sellerName, &sellerEmail, &available, &biddingOver, &bidStartTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("trade: lock expired product: %w", err)
	}

	if !available || biddingOver || !WindowElapsed(bidStartTime, now) {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE products SET is_available = false, is_bidding_over = true, updated_at = now() WHERE id = $1
	`, productID); err != nil {
		return false, fmt.Errorf("trade: close expired auction: %w", err)
	}

	var bidCount int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM bids WHERE product_id = $1`, productID).Scan(&bidCount); err != nil {
		return false, fmt.Errorf("trade: count bids: %w", err)
	}

	if err := notify.Enqueue(ctx, tx, TopicAuctionExpired, auctionExpiredEmail(sellerName, sellerEmail, name, bidCount)); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("trade: commit close tx: %w", err)
	}
	return true, nil
}
