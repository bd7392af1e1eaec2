package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// ConnectOptions tunes the retry loop and the pool.
type ConnectOptions struct {
	Attempts     int
	RetryDelay   time.Duration
	MaxOpenConns int
	MaxIdleConns int
}

// DefaultConnectOptions waits up to a minute for the database to come up.
var DefaultConnectOptions = ConnectOptions{
	Attempts:     30,
	RetryDelay:   2 * time.Second,
	MaxOpenConns: 25,
	MaxIdleConns: 5,
}

// Connect opens the shared connection pool and pings it, retrying until the
// database accepts connections. The caller owns the returned pool and must Close it.
func Connect(ctx context.Context, databaseURL string, log *slog.Logger, opts ConnectOptions) (*sql.DB, error) {
	var err error

	for i := 0; i < opts.Attempts; i++ {
		var db *sql.DB
		db, err = sql.Open("postgres", databaseURL)
		if err != nil {
			log.Warn("failed to open database, retrying", "error", err, "delay", opts.RetryDelay)
			if !sleep(ctx, opts.RetryDelay) {
				return nil, ctx.Err()
			}
			continue
		}

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			db.SetMaxOpenConns(opts.MaxOpenConns)
			db.SetMaxIdleConns(opts.MaxIdleConns)
			log.Info("connected to PostgreSQL")
			return db, nil
		}

		_ = db.Close()
		log.Warn("failed to ping database, retrying", "error", err, "delay", opts.RetryDelay)
		if !sleep(ctx, opts.RetryDelay) {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("could not connect to database after %d attempts: %w", opts.Attempts, err)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
