package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ProcessOnce records (consumer, messageID) in processed_messages and runs fn
// in the same transaction. If the pair was already recorded fn is skipped and
// ran is false. Consumers sharing a database see each message independently.
// Any error from fn rolls back both the work and the record.
func ProcessOnce(ctx context.Context, db *sql.DB, consumer, messageID string, fn func(tx *sql.Tx) error) (ran bool, err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil || !ran {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	result, err := tx.ExecContext(ctx,
		"INSERT INTO processed_messages (consumer, message_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		consumer, messageID,
	)
	if err != nil {
		return false, fmt.Errorf("record message %s: %w", messageID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if err := fn(tx); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit message %s: %w", messageID, err)
	}
	return true, nil
}
