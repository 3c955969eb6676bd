package dto

import "time"

// UserResponse is the internal API view of a synced record.
type UserResponse struct {
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	AvatarURL  string    `json:"avatar_url"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// WebhookAckResponse acknowledges a processed delivery.
type WebhookAckResponse struct {
	Outcome    string `json:"outcome"`
	ExternalID string `json:"external_id,omitempty"`
}
