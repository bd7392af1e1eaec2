package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// StreamMessage is one entry read from a stream written by StreamPublisher.
type StreamMessage struct {
	ID            string
	Key           string
	MessageID     string
	CorrelationID string
	Body          []byte
}

// StreamHandler processes one entry. A non-nil error moves the entry to the
// dead-letter stream.
type StreamHandler func(ctx context.Context, msg StreamMessage) error

type StreamConsumerConfig struct {
	Stream           string
	Group            string
	Consumer         string
	DeadLetterStream string
	Count            int64
	Block            time.Duration
	// MinIdle is how long an entry must sit unacknowledged in another
	// consumer's pending list before this consumer claims it. It is also
	// the interval between claim sweeps.
	MinIdle time.Duration
}

// StreamConsumer reads a stream through a consumer group and acks every entry
// after the handler has run. On start it replays its own pending entries, and
// while running it claims entries other consumers left idle for MinIdle.
type StreamConsumer struct {
	client goredis.Cmdable
	cfg    StreamConsumerConfig
	log    *slog.Logger
}

func NewStreamConsumer(client goredis.Cmdable, cfg StreamConsumerConfig, log *slog.Logger) *StreamConsumer {
	if cfg.Count <= 0 {
		cfg.Count = 10
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.MinIdle <= 0 {
		cfg.MinIdle = time.Minute
	}
	return &StreamConsumer{
		client: client,
		cfg:    cfg,
		log:    log.With("consumer", cfg.Consumer, "stream", cfg.Stream),
	}
}

// Run blocks until ctx is cancelled.
func (c *StreamConsumer) Run(ctx context.Context, handler StreamHandler) error {
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}
	c.log.Info("stream consumer started", "group", c.cfg.Group)

	if err := c.replayPending(ctx, handler); err != nil {
		c.log.Error("failed to replay pending messages", "error", err)
	}

	var lastClaim time.Time
	for {
		if time.Since(lastClaim) >= c.cfg.MinIdle {
			if err := c.claimIdle(ctx, handler); err != nil {
				c.log.Error("failed to claim idle messages", "error", err)
			}
			lastClaim = time.Now()
		}

		streams, err := c.client.XReadGroup(ctx, &goredis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: c.cfg.Consumer,
			Streams:  []string{c.cfg.Stream, ">"},
			Count:    c.cfg.Count,
			Block:    c.cfg.Block,
		}).Result()
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			c.log.Error("failed to read stream", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range streams {
			for _, entry := range stream.Messages {
				c.handle(ctx, entry, handler)
			}
		}
	}
}

func (c *StreamConsumer) handle(ctx context.Context, entry goredis.XMessage, handler StreamHandler) {
	msg := ParseStreamMessage(entry)
	c.log.Debug("received message",
		"entry_id", entry.ID,
		"message_id", msg.MessageID,
		"correlation_id", msg.CorrelationID)

	if err := handler(ctx, msg); err != nil {
		c.log.Error("failed to process message, sending to dead-letter stream",
			"error", err, "message_id", msg.MessageID)
		if dlqErr := c.deadLetter(ctx, entry, err); dlqErr != nil {
			// stays pending for replayPending or claimIdle
			c.log.Error("failed to dead-letter message", "error", dlqErr, "entry_id", entry.ID)
			return
		}
	}

	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, entry.ID).Err(); err != nil {
		c.log.Error("failed to ack message", "error", err, "entry_id", entry.ID)
	}
}

// replayPending handles entries delivered to this consumer name before a
// restart and never acked. The cursor advances past every entry, so one
// that fails again is left for claimIdle instead of looping here.
func (c *StreamConsumer) replayPending(ctx context.Context, handler StreamHandler) error {
	cursor := "0"
	for ctx.Err() == nil {
		streams, err := c.client.XReadGroup(ctx, &goredis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: c.cfg.Consumer,
			Streams:  []string{c.cfg.Stream, cursor},
			Count:    c.cfg.Count,
			Block:    -1,
		}).Result()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read pending entries: %w", err)
		}
		if len(streams) == 0 || len(streams[0].Messages) == 0 {
			return nil
		}
		for _, entry := range streams[0].Messages {
			c.log.Info("replaying pending message", "entry_id", entry.ID)
			c.handle(ctx, entry, handler)
			cursor = entry.ID
		}
	}
	return nil
}

// claimIdle takes over entries that have been pending for at least MinIdle
// in any consumer of the group and handles them.
func (c *StreamConsumer) claimIdle(ctx context.Context, handler StreamHandler) error {
	start := "0-0"
	for ctx.Err() == nil {
		entries, next, err := c.client.XAutoClaim(ctx, &goredis.XAutoClaimArgs{
			Stream:   c.cfg.Stream,
			Group:    c.cfg.Group,
			Consumer: c.cfg.Consumer,
			MinIdle:  c.cfg.MinIdle,
			Start:    start,
			Count:    c.cfg.Count,
		}).Result()
		if err != nil {
			return fmt.Errorf("claim idle entries: %w", err)
		}
		for _, entry := range entries {
			c.log.Info("claimed idle message", "entry_id", entry.ID)
			c.handle(ctx, entry, handler)
		}
		if next == "0-0" || next == "" {
			return nil
		}
		start = next
	}
	return nil
}

func (c *StreamConsumer) deadLetter(ctx context.Context, entry goredis.XMessage, cause error) error {
	if c.cfg.DeadLetterStream == "" {
		return nil
	}
	values := make(map[string]any, len(entry.Values)+2)
	for k, v := range entry.Values {
		values[k] = v
	}
	values["error"] = cause.Error()
	values["source_id"] = entry.ID
	return c.client.XAdd(ctx, &goredis.XAddArgs{Stream: c.cfg.DeadLetterStream, Values: values}).Err()
}

func (c *StreamConsumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s: %w", c.cfg.Group, err)
	}
	return nil
}

// ParseStreamMessage reads the fields StreamPublisher writes.
func ParseStreamMessage(entry goredis.XMessage) StreamMessage {
	str := func(field string) string {
		switch v := entry.Values[field].(type) {
		case string:
			return v
		case []byte:
			return string(v)
		default:
			return ""
		}
	}
	return StreamMessage{
		ID:            entry.ID,
		Key:           str("key"),
		MessageID:     str("message_id"),
		CorrelationID: str("correlation_id"),
		Body:          []byte(str("event")),
	}
}
