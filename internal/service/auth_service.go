package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/behnamfe76/gatekeeper/internal/auth"
	"github.com/behnamfe76/gatekeeper/internal/domain"
	"github.com/behnamfe76/gatekeeper/internal/events"
	"github.com/behnamfe76/gatekeeper/internal/repository"
	apperrors "github.com/behnamfe76/gatekeeper/pkg/util"
)

// TokenIssuer signs claims into bearer tokens.
type TokenIssuer interface {
	Issue(claims auth.Claims) (string, time.Time, error)
}

// IssuedToken is a signed token and its expiry.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates login and token refresh.
type AuthService struct {
	users      repository.UserRepository
	hasher     auth.PasswordHasher
	tokens     TokenIssuer
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Hasher     auth.PasswordHasher
	Tokens     TokenIssuer
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		hasher:     deps.Hasher,
		tokens:     deps.Tokens,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Login checks credentials and issues a token. Unknown emails and wrong
// passwords fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, IssuedToken, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, IssuedToken{}, apperrors.NewInvalidCredentials()
		}
		return nil, IssuedToken{}, err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, IssuedToken{}, apperrors.NewInvalidCredentials()
	}

	token, err := s.issue(auth.Claims{SubjectID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		return nil, IssuedToken{}, err
	}

	if s.dispatcher != nil {
		event := events.NewEvent(events.EventUserLoggedIn, user.ID, events.Actor{UserID: user.ID, Role: user.Role}, nil)
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
		}
	}
	return user, token, nil
}

// Refresh issues a new token carrying the same claims. The presented token
// is not invalidated.
func (s *AuthService) Refresh(claims auth.Claims) (IssuedToken, error) {
	return s.issue(claims)
}

func (s *AuthService) issue(claims auth.Claims) (IssuedToken, error) {
	token, exp, err := s.tokens.Issue(claims)
	if err != nil {
		return IssuedToken{}, apperrors.NewInternalError(err)
	}
	return IssuedToken{Token: token, ExpiresAt: exp}, nil
}
