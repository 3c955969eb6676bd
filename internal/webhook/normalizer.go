package webhook

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/spec-kit/user-sync-service/internal/domain"
)

// PlaceholderEmail is substituted when the provider reports no email address.
const PlaceholderEmail = "unknown@example.com"

const placeholderUserCeiling = 1_000_000_000_000

// providerUser mirrors the data object of the provider's user.* events. All
// fields are optional on the wire except the id.
type providerUser struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Username       string `json:"username"`
	ImageURL       string `json:"image_url"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

// Normalize maps a verified payload into the canonical user event, filling
// defaults for anything optional the provider omitted. Unrecognized event
// types map to EventKindUnhandled rather than erroring, so new provider
// events never break ingestion.
func Normalize(payload *VerifiedPayload) (domain.UserEvent, error) {
	kind := mapEventKind(payload.EventType)
	if kind == domain.EventKindUnhandled {
		return domain.UserEvent{Kind: kind}, nil
	}

	var user providerUser
	if len(payload.Data) > 0 {
		if err := json.Unmarshal(payload.Data, &user); err != nil {
			return domain.UserEvent{}, fmt.Errorf("%w: decode user data: %v", ErrMalformedPayload, err)
		}
	}
	externalID := strings.TrimSpace(user.ID)
	if externalID == "" {
		return domain.UserEvent{}, fmt.Errorf("%w: user id is required", ErrMalformedPayload)
	}

	username := deriveUsername(user)

	return domain.UserEvent{
		Kind:       kind,
		ExternalID: externalID,
		Username:   username,
		Name:       deriveName(user, username),
		Email:      deriveEmail(user),
		AvatarURL:  user.ImageURL,
	}, nil
}

func mapEventKind(eventType string) domain.EventKind {
	switch eventType {
	case "user.created":
		return domain.EventKindCreated
	case "user.updated":
		return domain.EventKindUpdated
	case "user.deleted":
		return domain.EventKindDeleted
	default:
		return domain.EventKindUnhandled
	}
}

// deriveUsername resolves the stored username: the provider value, then the
// lowercased first+last names, then a random user<N> placeholder. Collisions
// on the placeholder are not checked; the store's uniqueness constraint is
// the backstop.
func deriveUsername(user providerUser) string {
	if username := strings.TrimSpace(user.Username); username != "" {
		return username
	}
	combined := strings.TrimSpace(user.FirstName) + strings.TrimSpace(user.LastName)
	if combined != "" {
		return strings.ToLower(combined)
	}
	return fmt.Sprintf("user%d", rand.Int64N(placeholderUserCeiling))
}

func deriveName(user providerUser, username string) string {
	name := strings.TrimSpace(strings.TrimSpace(user.FirstName) + " " + strings.TrimSpace(user.LastName))
	if name == "" {
		return username
	}
	return name
}

func deriveEmail(user providerUser) string {
	if len(user.EmailAddresses) > 0 && user.EmailAddresses[0].EmailAddress != "" {
		return user.EmailAddresses[0].EmailAddress
	}
	return PlaceholderEmail
}
