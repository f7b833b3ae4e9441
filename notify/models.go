package notify

import "time"

// Email is the notification sink contract: recipient, subject, body.
type Email struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// Message status values as stored in the outbox table.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusDead    = "dead"
)

// Message represents a transactional outbox entry awaiting delivery.
type Message struct {
	ID        string
	Topic     string
	Email     Email
	Status    string
	Attempts  int
	CreatedAt time.Time
}
