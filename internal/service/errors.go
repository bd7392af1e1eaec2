package service

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is; use errors.As on the typed errors
// below to get the subject.
var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrPersistence        = errors.New("persistence failure")
)

// NotFoundError reports a lookup or write against an id with no user.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("user with id %d not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// EmailExistsError reports an email that another user already holds.
type EmailExistsError struct {
	Email string
}

func (e *EmailExistsError) Error() string {
	return fmt.Sprintf("email %s already in use", e.Email)
}

func (e *EmailExistsError) Is(target error) bool { return target == ErrEmailAlreadyExists }

// PersistenceError wraps an unexpected store fault.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
