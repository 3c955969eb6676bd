package webhook

import (
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/spec-kit/user-sync-service/internal/domain"
)

func payloadFor(t *testing.T, eventType string, data string) *VerifiedPayload {
	t.Helper()
	return &VerifiedPayload{EventType: eventType, Data: json.RawMessage(data)}
}

func TestNormalize_KindMapping(t *testing.T) {
	cases := []struct {
		eventType string
		want      domain.EventKind
	}{
		{"user.created", domain.EventKindCreated},
		{"user.updated", domain.EventKindUpdated},
		{"user.deleted", domain.EventKindDeleted},
		{"session.created", domain.EventKindUnhandled},
		{"", domain.EventKindUnhandled},
	}
	for _, tc := range cases {
		event, err := Normalize(payloadFor(t, tc.eventType, `{"id":"u1"}`))
		if err != nil {
			t.Fatalf("normalize %q: %v", tc.eventType, err)
		}
		if event.Kind != tc.want {
			t.Fatalf("event type %q: expected kind %q, got %q", tc.eventType, tc.want, event.Kind)
		}
	}
}

func TestNormalize_UsernameFromNames(t *testing.T) {
	event, err := Normalize(payloadFor(t, "user.created",
		`{"id":"u1","first_name":"Ada","last_name":"Lovelace"}`))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if event.Username != "adalovelace" {
		t.Fatalf("expected username adalovelace, got %q", event.Username)
	}
	if event.Name != "Ada Lovelace" {
		t.Fatalf("expected name Ada Lovelace, got %q", event.Name)
	}
}

func TestNormalize_ProviderUsernameWins(t *testing.T) {
	event, err := Normalize(payloadFor(t, "user.created",
		`{"id":"u1","username":"  ada_l  ","first_name":"Ada","last_name":"Lovelace"}`))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if event.Username != "ada_l" {
		t.Fatalf("expected trimmed provider username, got %q", event.Username)
	}
}

func TestNormalize_PlaceholderUsername(t *testing.T) {
	event, err := Normalize(payloadFor(t, "user.created", `{"id":"u1"}`))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	pattern := regexp.MustCompile(`^user[0-9]+$`)
	if !pattern.MatchString(event.Username) {
		t.Fatalf("expected placeholder username, got %q", event.Username)
	}
	// With no names at all the display name falls back to the username.
	if event.Name != event.Username {
		t.Fatalf("expected name to fall back to username, got %q", event.Name)
	}
}

func TestNormalize_EmailDefaults(t *testing.T) {
	event, err := Normalize(payloadFor(t, "user.created",
		`{"id":"u1","email_addresses":[{"email_address":"ada@example.com"},{"email_address":"second@example.com"}]}`))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if event.Email != "ada@example.com" {
		t.Fatalf("expected first email address, got %q", event.Email)
	}

	event, err = Normalize(payloadFor(t, "user.created", `{"id":"u1"}`))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if event.Email != PlaceholderEmail {
		t.Fatalf("expected placeholder email, got %q", event.Email)
	}
}

func TestNormalize_AvatarDefaultsToEmpty(t *testing.T) {
	event, err := Normalize(payloadFor(t, "user.updated", `{"id":"u1"}`))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if event.AvatarURL != "" {
		t.Fatalf("expected empty avatar url, got %q", event.AvatarURL)
	}
}

func TestNormalize_MissingIDIsMalformed(t *testing.T) {
	for _, eventType := range []string{"user.created", "user.updated", "user.deleted"} {
		_, err := Normalize(payloadFor(t, eventType, `{"first_name":"Ada"}`))
		if !errors.Is(err, ErrMalformedPayload) {
			t.Fatalf("event type %q: expected ErrMalformedPayload, got %v", eventType, err)
		}
	}
}

func TestNormalize_UnhandledSkipsIDCheck(t *testing.T) {
	event, err := Normalize(payloadFor(t, "organization.created", `{}`))
	if err != nil {
		t.Fatalf("unhandled kinds never error: %v", err)
	}
	if event.Kind != domain.EventKindUnhandled {
		t.Fatalf("expected unhandled kind, got %q", event.Kind)
	}
}
