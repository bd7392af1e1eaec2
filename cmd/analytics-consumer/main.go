package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Evgesha-thunder/user-service/internal/analytics"
	"github.com/Evgesha-thunder/user-service/internal/events"
	"github.com/Evgesha-thunder/user-service/pkg/config"
	"github.com/Evgesha-thunder/user-service/pkg/logger"
	"github.com/Evgesha-thunder/user-service/pkg/postgres"
	"github.com/Evgesha-thunder/user-service/pkg/rabbitmq"
	"github.com/Evgesha-thunder/user-service/pkg/redis"
)

const group = "analytics"

func main() {
	cfg := config.LoadForService("ANALYTICS")
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}).With("service", group)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("analytics-consumer stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log.Info("starting analytics-consumer", "transport", cfg.EventTransport)

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, log, postgres.DefaultConnectOptions)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(ctx, db, group, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	consumer := analytics.NewConsumer(db, log)

	switch cfg.EventTransport {
	case config.TransportRedis:
		rdb, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		err = events.SubscribeStream(ctx, rdb, group, consumer.Handle, log)
		if err != nil {
			return err
		}
	default:
		conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, log)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer conn.Close()
		if err := events.SubscribeRabbitMQ(ctx, conn, group, consumer.Handle, log); err != nil {
			return err
		}
	}

	log.Info("shutting down")
	return nil
}
