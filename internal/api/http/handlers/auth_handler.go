package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/behnamfe76/gatekeeper/internal/api/dto"
	"github.com/behnamfe76/gatekeeper/internal/auth"
	"github.com/behnamfe76/gatekeeper/internal/service"
	"github.com/behnamfe76/gatekeeper/internal/validation"
	apperrors "github.com/behnamfe76/gatekeeper/pkg/util"
)

// AuthHandler exposes login and token refresh.
type AuthHandler struct {
	auth  *service.AuthService
	users *service.UserService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, userService *service.UserService) *AuthHandler {
	return &AuthHandler{auth: authService, users: userService}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	req, ok := validation.Value[dto.LoginRequest](c, validation.SegmentBody)
	if !ok {
		return apperrors.NewBadRequest("Email and password are required")
	}

	user, token, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(dto.AuthResponse{
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
		User:      dto.NewUserResponse(user),
	})
}

// Refresh handles POST /api/auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized()
	}

	user, err := h.users.GetByID(c.UserContext(), identity.SubjectID)
	if err != nil {
		return err
	}
	token, err := h.auth.Refresh(identity)
	if err != nil {
		return err
	}

	return c.JSON(dto.AuthResponse{
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
		User:      dto.NewUserResponse(user),
	})
}
