package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/fieldconnect/internal/api/dto"
	"github.com/spec-kit/fieldconnect/internal/service"
)

// ProfileHandler serves the caller's own account.
type ProfileHandler struct {
	users UserService
}

// NewProfileHandler constructs handler.
func NewProfileHandler(users UserService) *ProfileHandler {
	return &ProfileHandler{users: users}
}

// Get handles GET /api/profile.
func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.Profile(c.UserContext(), identity(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Update handles POST /api/profile.
func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	var req service.ProfileUpdate
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.UpdateProfile(c.UserContext(), identity(c), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}
