package events

import (
	"time"

	"github.com/spec-kit/user-sync-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserSynced  EventType = "user_synced"
	EventUserRemoved EventType = "user_removed"
)

// Event represents a domain event emitted after a store mutation.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	ExternalID string      `json:"external_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// UserSyncedPayload payload.
type UserSyncedPayload struct {
	Kind     domain.EventKind `json:"kind"`
	Username string           `json:"username"`
	Email    string           `json:"email"`
}

// UserRemovedPayload payload.
type UserRemovedPayload struct {
	Existed bool `json:"existed"`
}
