package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const claimBatchSize = 20

// Worker drains pending outbox messages and hands them to the Mailer.
// Delivery failures bump the attempt counter and are logged; after
// maxAttempts the message is parked as dead. Nothing here can roll back or
// block the transactions that enqueued the messages.
type Worker struct {
	pool        *pgxpool.Pool
	mailer      Mailer
	log         *zap.Logger
	maxAttempts int
}

func NewWorker(pool *pgxpool.Pool, mailer Mailer, log *zap.Logger, maxAttempts int) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Worker{
		pool:        pool,
		mailer:      mailer,
		log:         log,
		maxAttempts: maxAttempts,
	}
}

// Run polls the outbox on the given interval until the context is canceled.
func (w *Worker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.DrainOnce(ctx); err != nil {
				w.log.Warn("outbox drain failed", zap.Error(err))
			}
		}
	}
}

// DrainOnce claims a batch of pending messages with SKIP LOCKED so concurrent
// workers never double-deliver, attempts delivery, and records the outcome.
// It returns the number of messages delivered.
func (w *Worker) DrainOnce(ctx context.Context) (int, error) {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("notify: begin drain tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, topic, payload, attempts
		FROM outbox
		WHERE status = 'pending'
		ORDER BY created_at
		FOR UPDATE SKIP LOCKED
		LIMIT $1
	`, claimBatchSize)
	if err != nil {
		return 0, fmt.Errorf("notify: claim batch: %w", err)
	}

	type claimed struct {
		id       string
		topic    string
		payload  []byte
		attempts int
	}
	batch := make([]claimed, 0, claimBatchSize)
	for rows.Next() {
		var c claimed
		if err := rows.Scan(&c.id, &c.topic, &c.payload, &c.attempts); err != nil {
			rows.Close()
			return 0, fmt.Errorf("notify: scan claimed message: %w", err)
		}
		batch = append(batch, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("notify: iterate claimed messages: %w", err)
	}

	sent := 0
	for _, c := range batch {
		var email Email
		if err := json.Unmarshal(c.payload, &email); err != nil {
			w.log.Error("outbox message has malformed payload",
				zap.String("id", c.id), zap.String("topic", c.topic), zap.Error(err))
			if _, err := tx.Exec(ctx, `UPDATE outbox SET status='dead', last_attempt=now() WHERE id=$1`, c.id); err != nil {
				return sent, fmt.Errorf("notify: park malformed message: %w", err)
			}
			continue
		}

		if err := w.mailer.Send(ctx, email); err != nil {
			status := StatusPending
			if c.attempts+1 >= w.maxAttempts {
				status = StatusDead
			}
			w.log.Warn("mail delivery failed",
				zap.String("id", c.id),
				zap.String("topic", c.topic),
				zap.String("recipient", email.Recipient),
				zap.Int("attempt", c.attempts+1),
				zap.String("next_status", status),
				zap.Error(err))
			if _, err := tx.Exec(ctx, `UPDATE outbox SET attempts=attempts+1, status=$2, last_attempt=now() WHERE id=$1`, c.id, status); err != nil {
				return sent, fmt.Errorf("notify: record failed attempt: %w", err)
			}
			continue
		}

		if _, err := tx.Exec(ctx, `UPDATE outbox SET status='sent', attempts=attempts+1, last_attempt=now() WHERE id=$1`, c.id); err != nil {
			return sent, fmt.Errorf("notify: mark sent: %w", err)
		}
		sent++
	}

	if err := tx.Commit(ctx); err != nil {
		return sent, fmt.Errorf("notify: commit drain tx: %w", err)
	}
	return sent, nil
}
