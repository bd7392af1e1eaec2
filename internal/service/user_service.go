// Package service holds the user lifecycle rules: email uniqueness, existence
// checks and the ordering of store writes before event emission.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Evgesha-thunder/user-service/internal/store"
	"github.com/Evgesha-thunder/user-service/pkg/models"
)

// EventSender emits lifecycle events. Implementations must not block on the
// broker and must not report delivery failures.
type EventSender interface {
	SendUserEvent(ctx context.Context, op models.UserOperation, user models.User)
}

// Option configures a UserService.
type Option func(*UserService)

// WithClock replaces the clock used to stamp createdAt.
func WithClock(now func() time.Time) Option {
	return func(s *UserService) { s.now = now }
}

// UserService is stateless and safe for concurrent use.
type UserService struct {
	store  store.Store
	events EventSender
	log    *slog.Logger
	now    func() time.Time
}

func NewUserService(st store.Store, events EventSender, log *slog.Logger, opts ...Option) *UserService {
	s := &UserService{
		store:  st,
		events: events,
		log:    log.With("component", "user_service"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new user and emits a CREATE event once the row is committed.
func (s *UserService) Create(ctx context.Context, in models.UserInput) (*models.User, error) {
	existing, err := s.store.FindByEmail(ctx, in.Email)
	switch {
	case err == nil && existing != nil:
		return nil, &EmailExistsError{Email: in.Email}
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return nil, &PersistenceError{Op: "check email", Err: err}
	}

	user := models.FromInput(in)
	// postgres keeps microseconds
	user.CreatedAt = s.now().UTC().Truncate(time.Microsecond)

	id, err := s.store.Save(ctx, &user)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			// lost the race against a concurrent create with the same email
			return nil, &EmailExistsError{Email: in.Email}
		}
		return nil, &PersistenceError{Op: "save user", Err: err}
	}
	user.ID = id

	s.log.Info("user created", "user_id", user.ID)
	s.events.SendUserEvent(ctx, models.OperationCreate, user)
	return &user, nil
}

func (s *UserService) FindByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.store.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, &PersistenceError{Op: "find user", Err: err}
	}
	return user, nil
}

// FindAll returns every user. The order is whatever the store yields.
func (s *UserService) FindAll(ctx context.Context) ([]models.User, error) {
	users, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "list users", Err: err}
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// Update replaces name, email and age of an existing user. No event is emitted.
func (s *UserService) Update(ctx context.Context, id int64, in models.UserInput) error {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}

	models.ApplyInput(user, in)

	err = s.store.Update(ctx, user)
	switch {
	case err == nil:
		s.log.Info("user updated", "user_id", id)
		return nil
	case errors.Is(err, store.ErrNotFound):
		return &NotFoundError{ID: id}
	case errors.Is(err, store.ErrDuplicateKey):
		return &EmailExistsError{Email: in.Email}
	default:
		return &PersistenceError{Op: "update user", Err: err}
	}
}

// DeleteByID removes a user and emits a DELETE event carrying the row as
// it was deleted.
func (s *UserService) DeleteByID(ctx context.Context, id int64) error {
	deleted, err := s.store.DeleteByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{ID: id}
	}
	if err != nil {
		return &PersistenceError{Op: "delete user", Err: err}
	}

	s.log.Info("user deleted", "user_id", id)
	s.events.SendUserEvent(ctx, models.OperationDelete, *deleted)
	return nil
}
