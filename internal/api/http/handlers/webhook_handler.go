package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/user-sync-service/internal/api/dto"
	"github.com/spec-kit/user-sync-service/internal/service"
	"github.com/spec-kit/user-sync-service/internal/webhook"
	apperrors "github.com/spec-kit/user-sync-service/pkg/util/errorutil"
)

// WebhookHandler receives signed lifecycle deliveries from the identity
// provider and drives them through verification, normalization and sync.
type WebhookHandler struct {
	verifier *webhook.Verifier
	sync     *service.SyncService
	logger   *zap.Logger
}

// NewWebhookHandler constructs handler.
func NewWebhookHandler(verifier *webhook.Verifier, syncService *service.SyncService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, sync: syncService, logger: logger}
}

// Handle processes POST /webhooks/identity. Verification and normalization
// failures are rejected here and never reach the store; store failures
// propagate so the provider can redeliver.
func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	hdr := webhook.Headers{
		ID:        c.Get(webhook.HeaderMessageID),
		Timestamp: c.Get(webhook.HeaderMessageTimestamp),
		Signature: c.Get(webhook.HeaderMessageSignature),
	}

	payload, err := h.verifier.Verify(c.Body(), hdr)
	if err != nil {
		return h.mapVerifyError(err, hdr.ID)
	}

	h.logger.Info("webhook received",
		zap.String("message_id", hdr.ID),
		zap.String("event_type", payload.EventType))

	event, err := webhook.Normalize(payload)
	if err != nil {
		return apperrors.NewMalformedPayload("payload is missing required fields", map[string]any{
			"event_type": payload.EventType,
		})
	}

	result, err := h.sync.Apply(c.UserContext(), event)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": dto.WebhookAckResponse{
		Outcome:    string(result.Outcome),
		ExternalID: result.ExternalID,
	}})
}

func (h *WebhookHandler) mapVerifyError(err error, messageID string) error {
	switch {
	case errors.Is(err, webhook.ErrMissingSecret):
		// Deployment fault; never a property of the request.
		return apperrors.NewConfigurationError("webhook signing secret is not configured")
	case errors.Is(err, webhook.ErrMissingHeaders):
		return apperrors.NewValidationError("missing webhook headers", nil)
	case errors.Is(err, webhook.ErrMalformedPayload):
		return apperrors.NewMalformedPayload("payload is not valid JSON", nil)
	default:
		// Mismatch and expiry are indistinguishable on purpose.
		h.logger.Warn("webhook rejected", zap.String("message_id", messageID))
		return apperrors.NewAuthenticationFailed("invalid webhook signature")
	}
}
