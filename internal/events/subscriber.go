package events

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	amqp "github.com/rabbitmq/amqp091-go"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Evgesha-thunder/user-service/pkg/models"
	"github.com/Evgesha-thunder/user-service/pkg/rabbitmq"
	"github.com/Evgesha-thunder/user-service/pkg/redis"
)

// Handler processes one user event. A returned error dead-letters it.
type Handler func(ctx context.Context, d Delivery) error

// RabbitMQConsumerConfig names the queues for a consumer group. Every user key
// is bound, so the queue sees all events in publish order.
func RabbitMQConsumerConfig(group string) rabbitmq.ConsumerConfig {
	return rabbitmq.ConsumerConfig{
		Exchange:     models.UserEventsTopic,
		QueueName:    group + "." + models.UserEventsTopic,
		DLQName:      "dlq." + group + "." + models.UserEventsTopic,
		RoutingKeys:  []string{"#"},
		ConsumerName: group + "-consumer",
	}
}

// SubscribeRabbitMQ starts consuming and blocks until ctx is done.
func SubscribeRabbitMQ(ctx context.Context, conn *rabbitmq.Connection, group string, h Handler, log *slog.Logger) error {
	cfg := RabbitMQConsumerConfig(group)
	err := rabbitmq.SetupConsumer(ctx, conn, cfg, func(ctx context.Context, d amqp.Delivery) error {
		return h(ctx, FromAMQP(d))
	}, log)
	if err != nil {
		return fmt.Errorf("setup %s consumer: %w", group, err)
	}
	<-ctx.Done()
	return nil
}

// StreamConsumerConfig names the consumer group and dead-letter stream.
func StreamConsumerConfig(group string) redis.StreamConsumerConfig {
	host, _ := os.Hostname()
	return redis.StreamConsumerConfig{
		Stream:           models.UserEventsTopic,
		Group:            group,
		Consumer:         group + "-" + host,
		DeadLetterStream: models.UserEventsTopic + ".dlq." + group,
	}
}

// SubscribeStream reads the Redis stream and blocks until ctx is done.
func SubscribeStream(ctx context.Context, client goredis.Cmdable, group string, h Handler, log *slog.Logger) error {
	consumer := redis.NewStreamConsumer(client, StreamConsumerConfig(group), log)
	return consumer.Run(ctx, func(ctx context.Context, msg redis.StreamMessage) error {
		return h(ctx, FromStream(msg))
	})
}
