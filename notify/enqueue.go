package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Enqueue records an email in the outbox inside the caller's transaction.
// The message becomes visible to the worker only once that transaction
// commits, so delivery can never outrun (or outlive) the state change that
// caused it.
func Enqueue(ctx context.Context, tx pgx.Tx, topic string, email Email) error {
	if email.Recipient == "" {
		return fmt.Errorf("notify: empty recipient for topic %s", topic)
	}

	payload, err := json.Marshal(email)
	if err != nil {
		return fmt.Errorf("notify: marshal payload: %w", err)
	}

	const q = `INSERT INTO outbox (topic, payload) VALUES ($1, $2::jsonb)`
	if _, err := tx.Exec(ctx, q, topic, payload); err != nil {
		return fmt.Errorf("notify: enqueue outbox: %w", err)
	}
	return nil
}
