package redis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// StreamPublisher appends messages to a Redis stream named after the topic.
type StreamPublisher struct {
	client goredis.Cmdable
	maxLen int64
}

// NewStreamPublisher creates a publisher. maxLen > 0 caps each stream approximately.
func NewStreamPublisher(client goredis.Cmdable, maxLen int64) *StreamPublisher {
	return &StreamPublisher{client: client, maxLen: maxLen}
}

// Publish adds one entry to the topic stream. Entries carry the message key so
// consumers can partition by subject.
func (p *StreamPublisher) Publish(ctx context.Context, topic, key string, body []byte, correlationID string) error {
	args := &goredis.XAddArgs{
		Stream: topic,
		Values: map[string]any{
			"key":            key,
			"event":          body,
			"message_id":     uuid.New().String(),
			"correlation_id": correlationID,
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", topic, err)
	}
	return nil
}
