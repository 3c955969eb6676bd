package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/user-sync-service/internal/api/dto"
	"github.com/spec-kit/user-sync-service/internal/repository"
	apperrors "github.com/spec-kit/user-sync-service/pkg/util/errorutil"
)

// UsersHandler exposes the internal read API for synced records.
type UsersHandler struct {
	users repository.UserRepository
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users repository.UserRepository) *UsersHandler {
	return &UsersHandler{users: users}
}

// Get handles GET /internal/users/:externalID.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	externalID := c.Params("externalID")
	if externalID == "" {
		return apperrors.NewValidationError("external id required", nil)
	}

	user, err := h.users.GetByExternalID(c.UserContext(), externalID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"external_id": externalID})
		}
		return apperrors.NewStoreUnavailable(err)
	}

	return c.JSON(fiber.Map{"data": dto.UserResponse{
		ExternalID: user.ExternalID,
		Name:       user.Name,
		Email:      user.Email,
		Username:   user.Username,
		AvatarURL:  user.AvatarURL,
		CreatedAt:  user.CreatedAt,
		UpdatedAt:  user.UpdatedAt,
	}})
}
