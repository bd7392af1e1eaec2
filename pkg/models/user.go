package models

import "time"

// User is the persisted shape of a user record.
type User struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Age       int       `db:"age"`
	CreatedAt time.Time `db:"created_at"`
}

// UserDTO is the transfer shape returned by the API.
type UserDTO struct {
	ID        int64     `json:"id" example:"1"`
	Name      string    `json:"name" example:"John"`
	Email     string    `json:"email" example:"john@example.com"`
	Age       int       `json:"age" example:"22"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserRequest is the request body for creating or fully updating a user.
// Age is a pointer so that an absent or null age is told apart from 0.
type UserRequest struct {
	Name  string `json:"name" validate:"required,notblank,min=3,max=20" example:"John"`
	Email string `json:"email" validate:"required,notblank,email" example:"john@example.com"`
	Age   *int   `json:"age" validate:"required,min=7,max=100" example:"22"`
}

// UserInput holds the fields of a validated UserRequest.
type UserInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   int    `json:"age"`
}
