package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Header names carried out-of-band with every delivery.
const (
	HeaderMessageID        = "message-id"
	HeaderMessageTimestamp = "message-timestamp"
	HeaderMessageSignature = "message-signature"
)

const (
	secretPrefix     = "whsec_"
	signatureVersion = "v1"
	defaultTolerance = 5 * time.Minute
)

var (
	// ErrMissingSecret means the signing secret was never configured; this is
	// a deployment fault, not a property of the request.
	ErrMissingSecret = errors.New("webhook: signing secret is not configured")
	// ErrMissingHeaders means one of the three required headers is absent.
	ErrMissingHeaders = errors.New("webhook: message id, timestamp and signature headers are required")
	// ErrInvalidSignature covers both a mismatched signature and a timestamp
	// outside the freshness window. Callers must not distinguish the two.
	ErrInvalidSignature = errors.New("webhook: signature verification failed")
	// ErrMalformedPayload means the payload cannot yield a usable user event.
	ErrMalformedPayload = errors.New("webhook: malformed payload")
)

// Headers bundles the delivery identification headers of one webhook.
type Headers struct {
	ID        string
	Timestamp string
	Signature string
}

// VerifiedPayload is a delivery whose signature checked out: the parsed body
// plus the provider's event type string. It exists only between verification
// and normalization.
type VerifiedPayload struct {
	EventType string
	Data      json.RawMessage
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// VerifierConfig configures signature verification.
type VerifierConfig struct {
	// Secret is the provider signing secret, base64 after an optional
	// whsec_ prefix.
	Secret string
	// Tolerance is the freshness window for the signed timestamp.
	Tolerance time.Duration
	// Now overrides the clock.
	Now func() time.Time
}

// Verifier authenticates inbound deliveries against the provider signing
// scheme: HMAC-SHA256 over "id.timestamp.body" under the shared secret.
type Verifier struct {
	key       []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier builds a Verifier from config, applying defaults.
func NewVerifier(cfg VerifierConfig) *Verifier {
	tolerance := cfg.Tolerance
	if tolerance <= 0 {
		tolerance = defaultTolerance
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Verifier{
		key:       decodeSecret(cfg.Secret),
		tolerance: tolerance,
		now:       now,
	}
}

// Verify authenticates body against the delivery headers and returns the
// parsed payload. The body must not be interpreted before Verify succeeds.
func (v *Verifier) Verify(body []byte, hdr Headers) (*VerifiedPayload, error) {
	if len(v.key) == 0 {
		return nil, ErrMissingSecret
	}

	id := strings.TrimSpace(hdr.ID)
	timestamp := strings.TrimSpace(hdr.Timestamp)
	signature := strings.TrimSpace(hdr.Signature)
	if id == "" || timestamp == "" || signature == "" {
		return nil, ErrMissingHeaders
	}

	sentAt, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return nil, ErrInvalidSignature
	}
	age := v.now().Sub(time.Unix(sentAt, 0))
	if age < 0 {
		age = -age
	}
	if age > v.tolerance {
		return nil, ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(id))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := mac.Sum(nil)

	if !matchSignature(signature, expected) {
		return nil, ErrInvalidSignature
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, ErrMalformedPayload
	}
	return &VerifiedPayload{EventType: env.Type, Data: env.Data}, nil
}

// matchSignature checks the supplied header against the expected MAC. The
// header carries a space-separated list of "version,base64" entries; any v1
// entry matching in constant time accepts.
func matchSignature(header string, expected []byte) bool {
	for _, candidate := range strings.Fields(header) {
		version, value, found := strings.Cut(candidate, ",")
		if !found || version != signatureVersion {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			continue
		}
		if subtle.ConstantTimeCompare(decoded, expected) == 1 {
			return true
		}
	}
	return false
}

func decodeSecret(secret string) []byte {
	trimmed := strings.TrimPrefix(strings.TrimSpace(secret), secretPrefix)
	if trimmed == "" {
		return nil
	}
	key, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		// Not base64; use the raw value as the key.
		return []byte(trimmed)
	}
	return key
}
