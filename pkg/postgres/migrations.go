package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// RunMigrations creates the tables a service needs. Every statement is idempotent.
func RunMigrations(ctx context.Context, db *sql.DB, service string, log *slog.Logger) error {
	migrations := getServiceMigrations(service)
	for i, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration %d for %s: %w", i, service, err)
		}
	}
	log.Info("migrations completed", "service", service, "statements", len(migrations))
	return nil
}

const processedMessagesTable = `CREATE TABLE IF NOT EXISTS processed_messages (
	consumer VARCHAR(64) NOT NULL,
	message_id VARCHAR(36) NOT NULL,
	processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (consumer, message_id)
)`

func getServiceMigrations(service string) []string {
	users := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(20) NOT NULL,
			email VARCHAR(255) NOT NULL,
			age INTEGER NOT NULL CHECK (age BETWEEN 7 AND 100),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT users_email_key UNIQUE (email)
		)`,
	}

	switch service {
	case "api":
		return users
	case "audit":
		return []string{
			processedMessagesTable,
			`CREATE TABLE IF NOT EXISTS user_event_log (
				id BIGSERIAL PRIMARY KEY,
				message_id VARCHAR(36) NOT NULL,
				correlation_id VARCHAR(64),
				operation VARCHAR(16) NOT NULL,
				user_id BIGINT NOT NULL,
				user_email VARCHAR(255) NOT NULL,
				received_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
		}
	case "analytics":
		return []string{
			processedMessagesTable,
			`CREATE TABLE IF NOT EXISTS user_event_metrics (
				id SERIAL PRIMARY KEY,
				metric_date DATE NOT NULL,
				operation VARCHAR(16) NOT NULL,
				count INTEGER NOT NULL DEFAULT 0,
				UNIQUE(metric_date, operation)
			)`,
		}
	default:
		return users
	}
}
