package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/behnamfe76/gatekeeper/internal/api/dto"
	"github.com/behnamfe76/gatekeeper/internal/auth"
	"github.com/behnamfe76/gatekeeper/internal/domain"
	"github.com/behnamfe76/gatekeeper/internal/events"
	"github.com/behnamfe76/gatekeeper/internal/service"
	"github.com/behnamfe76/gatekeeper/internal/validation"
	apperrors "github.com/behnamfe76/gatekeeper/pkg/util"
)

// UsersHandler exposes account management endpoints.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// Me handles GET /api/users/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized()
	}

	user, err := h.users.GetByID(c.UserContext(), identity.SubjectID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// List handles GET /api/users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	users, err := h.users.List(c.UserContext())
	if err != nil {
		return err
	}

	resp := make([]dto.UserResponse, 0, len(users))
	for _, user := range users {
		resp = append(resp, dto.NewUserResponse(user))
	}
	return c.JSON(resp)
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	req, ok := validation.Value[dto.CreateUserRequest](c, validation.SegmentBody)
	if !ok {
		return apperrors.NewBadRequest("Name, email, password, and role are required")
	}

	user, err := h.users.Create(c.UserContext(), actorFrom(c), service.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewUserResponse(user))
}

// Delete handles DELETE /api/users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	params, ok := validation.Value[dto.UserID](c, validation.SegmentParams)
	if !ok {
		return apperrors.NewBadRequest("ID must be a number")
	}

	if err := h.users.Delete(c.UserContext(), actorFrom(c), params.ID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func actorFrom(c *fiber.Ctx) events.Actor {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return events.Actor{}
	}
	return events.Actor{UserID: identity.SubjectID, Role: identity.Role}
}
