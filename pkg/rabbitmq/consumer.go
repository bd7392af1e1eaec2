package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ConsumerConfig holds configuration for setting up a consumer.
type ConsumerConfig struct {
	Exchange     string
	QueueName    string
	DLQName      string
	RoutingKeys  []string
	ConsumerName string
}

// MessageHandler is a function that processes a delivered message.
// Return nil to ack, return error to nack (the message goes to the DLQ).
type MessageHandler func(ctx context.Context, delivery amqp.Delivery) error

// SetupConsumer declares queues (main + DLQ), binds them, and starts consuming.
// Deliveries are handled one at a time on a background goroutine until the
// channel is closed. ctx is passed to every handler call.
func SetupConsumer(ctx context.Context, conn *Connection, cfg ConsumerConfig, handler MessageHandler, log *slog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}

	if err := declareTopicExchange(ch, cfg.Exchange); err != nil {
		return fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	// Declare DLQ
	_, err = ch.QueueDeclare(
		cfg.DLQName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	// Declare main queue with DLQ settings
	args := amqp.Table{
		"x-dead-letter-exchange":    "",          // default exchange
		"x-dead-letter-routing-key": cfg.DLQName, // route to DLQ
	}

	_, err = ch.QueueDeclare(
		cfg.QueueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		args,
	)
	if err != nil {
		return err
	}

	for _, key := range cfg.RoutingKeys {
		if err := ch.QueueBind(cfg.QueueName, key, cfg.Exchange, false, nil); err != nil {
			return err
		}
	}

	// prefetch 1 keeps per-queue delivery order
	if err := ch.Qos(1, 0, false); err != nil {
		return err
	}

	msgs, err := ch.Consume(
		cfg.QueueName,
		cfg.ConsumerName,
		false, // auto-ack = false (manual ack)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	log = log.With("consumer", cfg.ConsumerName)
	go func() {
		for msg := range msgs {
			log.Debug("received message",
				"routing_key", msg.RoutingKey,
				"message_id", msg.MessageId,
				"correlation_id", msg.CorrelationId)

			if err := handler(ctx, msg); err != nil {
				log.Error("failed to process message, sending to DLQ",
					"error", err, "message_id", msg.MessageId)
				_ = msg.Nack(false, false)
			} else {
				_ = msg.Ack(false)
			}
		}
		log.Info("delivery channel closed")
	}()

	log.Info("consumer started", "queue", cfg.QueueName, "exchange", cfg.Exchange)
	return nil
}
