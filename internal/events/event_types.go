package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/behnamfe76/gatekeeper/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserCreated  EventType = "user_created"
	EventUserDeleted  EventType = "user_deleted"
	EventUserLoggedIn EventType = "user_logged_in"
)

// Actor identifies who caused an event. A zero Actor means the system.
type Actor struct {
	UserID int64       `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    int64       `json:"user_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, userID int64, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// UserCreatedPayload payload.
type UserCreatedPayload struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// UserDeletedPayload payload.
type UserDeletedPayload struct {
	Email string `json:"email"`
}
