// Package audit keeps an append-only log of user lifecycle events.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Evgesha-thunder/user-service/internal/events"
	"github.com/Evgesha-thunder/user-service/pkg/postgres"
)

// ConsumerName scopes processed message ids to this consumer.
const ConsumerName = "audit"

// Consumer writes each user event to user_event_log exactly once per message id.
type Consumer struct {
	db  *sql.DB
	log *slog.Logger
}

// NewConsumer creates a new audit consumer.
func NewConsumer(db *sql.DB, log *slog.Logger) *Consumer {
	return &Consumer{db: db, log: log.With("component", "audit")}
}

// Handle processes one delivery. A returned error sends it to the dead-letter queue.
func (c *Consumer) Handle(ctx context.Context, d events.Delivery) error {
	msg, err := d.Decode()
	if err != nil {
		c.log.Error("rejecting message", "error", err,
			"message_id", d.MessageID, "correlation_id", d.CorrelationID)
		return err
	}

	ran, err := postgres.ProcessOnce(ctx, c.db, ConsumerName, msg.MessageID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO user_event_log (message_id, correlation_id, operation, user_id, user_email)
			 VALUES ($1, $2, $3, $4, $5)`,
			msg.MessageID, msg.CorrelationID, string(msg.Event.Operation), msg.UserID, msg.Event.Email,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("audit message %s: %w", msg.MessageID, err)
	}
	if !ran {
		c.log.Info("duplicate message ignored",
			"message_id", msg.MessageID, "correlation_id", msg.CorrelationID)
		return nil
	}

	c.log.Info("user event recorded",
		"operation", msg.Event.Operation,
		"user_id", msg.UserID,
		"message_id", msg.MessageID,
		"correlation_id", msg.CorrelationID)
	return nil
}
