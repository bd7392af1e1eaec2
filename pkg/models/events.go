package models

// UserEventsTopic is the logical topic every user lifecycle event is sent to.
const UserEventsTopic = "user-events"

// UserOperation is the kind of lifecycle change an event describes.
type UserOperation string

const (
	OperationCreate UserOperation = "CREATE"
	OperationDelete UserOperation = "DELETE"
)

// UserOperationEvent is the message value published to UserEventsTopic.
// The message key is the subject's ID.
type UserOperationEvent struct {
	Operation UserOperation `json:"operation"`
	Email     string        `json:"email"`
}
