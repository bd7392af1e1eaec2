// Package analytics keeps daily counts of user lifecycle events.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Evgesha-thunder/user-service/internal/events"
	"github.com/Evgesha-thunder/user-service/pkg/postgres"
)

// ConsumerName scopes processed message ids to this consumer.
const ConsumerName = "analytics"

// Consumer handles analytics events.
type Consumer struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

// NewConsumer creates a new analytics consumer.
func NewConsumer(db *sql.DB, log *slog.Logger) *Consumer {
	return &Consumer{db: db, log: log.With("component", "analytics"), now: time.Now}
}

// Handle counts one event against the UTC day it was published on.
func (c *Consumer) Handle(ctx context.Context, d events.Delivery) error {
	msg, err := d.Decode()
	if err != nil {
		c.log.Error("rejecting message", "error", err,
			"message_id", d.MessageID, "correlation_id", d.CorrelationID)
		return err
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = c.now()
	}
	metricDate := ts.UTC().Format(time.DateOnly)

	// upsert count by date and operation
	ran, err := postgres.ProcessOnce(ctx, c.db, ConsumerName, msg.MessageID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO user_event_metrics (metric_date, operation, count)
			 VALUES ($1, $2, 1)
			 ON CONFLICT (metric_date, operation)
			 DO UPDATE SET count = user_event_metrics.count + 1`,
			metricDate, string(msg.Event.Operation),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("count message %s: %w", msg.MessageID, err)
	}
	if !ran {
		c.log.Info("duplicate message ignored",
			"message_id", msg.MessageID, "correlation_id", msg.CorrelationID)
		return nil
	}

	c.log.Info("metrics updated",
		"date", metricDate,
		"operation", msg.Event.Operation,
		"correlation_id", msg.CorrelationID)
	return nil
}
