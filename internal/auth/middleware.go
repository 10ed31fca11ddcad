package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/behnamfe76/gatekeeper/internal/api/pipeline"
	apperrors "github.com/behnamfe76/gatekeeper/pkg/util"
)

const (
	identityKey  = "auth_identity"
	bearerPrefix = "Bearer "
)

// TokenVerifier turns a raw bearer token into claims.
type TokenVerifier interface {
	Verify(raw string) (Claims, error)
}

// Authenticator validates bearer tokens and attaches the caller's identity.
type Authenticator struct {
	tokens TokenVerifier
}

// NewAuthenticator constructs the authentication stage.
func NewAuthenticator(tokens TokenVerifier) *Authenticator {
	return &Authenticator{tokens: tokens}
}

// Stage returns the pipeline stage enforcing authentication.
func (a *Authenticator) Stage() pipeline.Stage {
	return func(c *fiber.Ctx) pipeline.Outcome {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			return pipeline.ShortCircuit(apperrors.NewNoToken())
		}

		claims, err := a.tokens.Verify(authHeader[len(bearerPrefix):])
		switch {
		case err == nil:
		case errors.Is(err, ErrTokenExpired):
			return pipeline.ShortCircuit(apperrors.NewTokenExpired())
		case errors.Is(err, ErrInvalidToken):
			return pipeline.ShortCircuit(apperrors.NewInvalidToken())
		default:
			return pipeline.ShortCircuit(apperrors.NewAuthFailed(err))
		}

		c.Locals(identityKey, claims)
		return pipeline.Continue()
	}
}

// IdentityFromContext retrieves the authenticated caller. The value is a copy.
func IdentityFromContext(c *fiber.Ctx) (Claims, bool) {
	claims, ok := c.Locals(identityKey).(Claims)
	return claims, ok
}
