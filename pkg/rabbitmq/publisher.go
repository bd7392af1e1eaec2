package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher publishes messages to topic exchanges. Each topic maps to a durable
// topic exchange of the same name and the message key becomes the routing key.
type Publisher struct {
	mu      sync.Mutex
	channel *amqp.Channel
}

// NewPublisher opens a channel and declares one topic exchange per topic.
func NewPublisher(conn *Connection, topics ...string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	for _, topic := range topics {
		if err := declareTopicExchange(ch, topic); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("declare exchange %s: %w", topic, err)
		}
	}

	return &Publisher{channel: ch}, nil
}

// Publish sends body to the topic exchange with key as the routing key.
func (p *Publisher) Publish(ctx context.Context, topic, key string, body []byte, correlationID string) error {
	// amqp channels are not safe for concurrent publishes
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.channel.PublishWithContext(
		ctx,
		topic,
		key,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			MessageId:     uuid.New().String(),
			CorrelationId: correlationID,
			Body:          body,
			DeliveryMode:  amqp.Persistent,
			Timestamp:     time.Now().UTC(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Close closes the publisher channel.
func (p *Publisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
