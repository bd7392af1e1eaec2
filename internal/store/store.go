// Package store persists user records.
package store

import (
	"context"
	"errors"

	"github.com/Evgesha-thunder/user-service/pkg/models"
)

var (
	// ErrNotFound is returned when no row matches the lookup or write.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateKey is returned when a write violates the email uniqueness constraint.
	ErrDuplicateKey = errors.New("duplicate key")
)

// Store is the durable keyed storage for users. Every write is atomic: it
// either commits fully or is rolled back before the error is returned.
type Store interface {
	Save(ctx context.Context, user *models.User) (int64, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindAll returns every user in no particular order.
	FindAll(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
	// DeleteByID removes the row and returns it as it was at deletion time.
	DeleteByID(ctx context.Context, id int64) (*models.User, error)
}
