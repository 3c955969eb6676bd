package domain

import "time"

// EventKind enumerates the user lifecycle transitions the provider reports.
type EventKind string

const (
	EventKindCreated   EventKind = "created"
	EventKindUpdated   EventKind = "updated"
	EventKindDeleted   EventKind = "deleted"
	EventKindUnhandled EventKind = "unhandled"
)

// User is the local mirror of an identity provider account, keyed by the
// provider-assigned external id.
type User struct {
	ID         string
	ExternalID string
	Name       string
	Email      string
	Username   string
	AvatarURL  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// UserEvent is the canonical form of a verified lifecycle webhook. ExternalID
// is non-empty for created/updated/deleted events; the remaining fields carry
// normalized defaults and are meaningless for deletions.
type UserEvent struct {
	Kind       EventKind
	ExternalID string
	Name       string
	Email      string
	Username   string
	AvatarURL  string
}
