package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Evgesha-thunder/user-service/internal/api"
	"github.com/Evgesha-thunder/user-service/internal/events"
	"github.com/Evgesha-thunder/user-service/internal/service"
	"github.com/Evgesha-thunder/user-service/internal/store"
	"github.com/Evgesha-thunder/user-service/pkg/config"
	"github.com/Evgesha-thunder/user-service/pkg/logger"
	"github.com/Evgesha-thunder/user-service/pkg/models"
	"github.com/Evgesha-thunder/user-service/pkg/postgres"
	"github.com/Evgesha-thunder/user-service/pkg/rabbitmq"
	"github.com/Evgesha-thunder/user-service/pkg/redis"
)

// @title           User Service API
// @version         1.0
// @description     CRUD over users with CREATE and DELETE events published to user-events.
// @host            localhost:8080
// @BasePath        /
func main() {
	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("api-service stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log.Info("starting api-service", "transport", cfg.EventTransport, "port", cfg.APIPort)

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, log, postgres.DefaultConnectOptions)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(ctx, db, "api", log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
	}

	var transport events.Transport
	switch cfg.EventTransport {
	case config.TransportRedis:
		transport = redis.NewStreamPublisher(rdb, 100_000)
	default:
		conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, log)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer conn.Close()

		publisher, err := rabbitmq.NewPublisher(conn, models.UserEventsTopic)
		if err != nil {
			return fmt.Errorf("create publisher: %w", err)
		}
		defer publisher.Close()
		transport = publisher
	}

	opts := events.DefaultOptions
	opts.PublishTimeout = cfg.PublishTimeout
	notifier := events.NewNotifier(transport, log, opts)

	var users store.Store = store.NewPostgresStore(db)
	if rdb != nil {
		users = store.NewCachedStore(users, redis.NewViewCache[models.User](rdb, cfg.CacheTTL, log))
		log.Info("read cache enabled", "ttl", cfg.CacheTTL)
	}

	svc := service.NewUserService(users, notifier, log)
	router := api.NewRouter(api.NewUserHandler(svc, log), log)

	srv := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http: %w", err)
		}
		// no new requests; flush what the handlers queued
		if err := notifier.Close(shutdownCtx); err != nil {
			log.Warn("events still queued at shutdown were dropped", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server exited gracefully")
	return nil
}
