package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Evgesha-thunder/user-service/pkg/models"
)

const uniqueViolation = "23505"

const selectUserColumns = "SELECT id, name, email, age, created_at FROM users"

// PostgresStore implements Store on top of a shared *sql.DB pool.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps db. The caller keeps ownership of the pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, user *models.User) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx,
			"INSERT INTO users (name, email, age, created_at) VALUES ($1, $2, $3, $4) RETURNING id",
			user.Name, user.Email, user.Age, user.CreatedAt,
		).Scan(&id)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("save user %s: %w", user.Email, ErrDuplicateKey)
		}
		return 0, fmt.Errorf("save user: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, selectUserColumns+" WHERE id = $1", id)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by id %d: %w", id, err)
	}
	return user, nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, selectUserColumns+" WHERE email = $1", email)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) FindAll(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, selectUserColumns)
	if err != nil {
		return nil, fmt.Errorf("find all users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// Update overwrites name, email and age. created_at is never written.
func (s *PostgresStore) Update(ctx context.Context, user *models.User) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"UPDATE users SET name = $1, email = $2, age = $3 WHERE id = $4",
			user.Name, user.Email, user.Age, user.ID,
		)
		if err != nil {
			return err
		}
		return requireOneRow(result)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("update user %d: %w", user.ID, ErrDuplicateKey)
	default:
		return fmt.Errorf("update user %d: %w", user.ID, err)
	}
}

func (s *PostgresStore) DeleteByID(ctx context.Context, id int64) (*models.User, error) {
	var deleted *models.User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			"DELETE FROM users WHERE id = $1 RETURNING id, name, email, age, created_at", id)
		user, err := scanUser(row)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		deleted = user
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete user %d: %w", id, err)
	}
	return deleted, nil
}

// withTx runs fn in a transaction, rolling back on any error from fn.
func (s *PostgresStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Age, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func requireOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
