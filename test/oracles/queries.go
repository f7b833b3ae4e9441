package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_single_accepted_bid",
			SQL: `SELECT product_id, COUNT(*) FROM bids
                  WHERE is_accepted
                  GROUP BY product_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O2_closed_still_available",
			SQL: `SELECT id FROM products
                  WHERE is_bidding_over AND is_available`,
		},
		{
			Name: "O3_accepted_on_open_auction",
			SQL: `SELECT b.id FROM bids b
                  JOIN products p ON p.id = b.product_id
                  WHERE b.is_accepted AND NOT p.is_bidding_over`,
		},
		{
			Name: "O4_bids_without_clock_start",
			SQL: `SELECT p.id FROM products p
                  WHERE p.bid_start_time IS NULL
                    AND EXISTS (SELECT 1 FROM bids b WHERE b.product_id = p.id)`,
		},
		{
			Name: "O5_duplicate_bid_per_bidder",
			SQL: `SELECT product_id, bidder_id, COUNT(*) FROM bids
                  GROUP BY product_id, bidder_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O6_outbox_stuck",
			SQL: `SELECT id::text FROM outbox
                  WHERE status NOT IN ('sent','dead')
                    AND now() - created_at > interval '5 minutes'`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
