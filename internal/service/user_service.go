package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/behnamfe76/gatekeeper/internal/auth"
	"github.com/behnamfe76/gatekeeper/internal/config"
	"github.com/behnamfe76/gatekeeper/internal/domain"
	"github.com/behnamfe76/gatekeeper/internal/events"
	"github.com/behnamfe76/gatekeeper/internal/repository"
	apperrors "github.com/behnamfe76/gatekeeper/pkg/util"
)

// CreateUserInput carries the fields of a new account.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// UserService manages accounts.
type UserService struct {
	users      repository.UserRepository
	hasher     auth.PasswordHasher
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewUserService builds the service.
func NewUserService(users repository.UserRepository, hasher auth.PasswordHasher, dispatcher events.Dispatcher, logger *zap.Logger) *UserService {
	return &UserService{users: users, hasher: hasher, dispatcher: dispatcher, logger: logger}
}

// GetByID loads one account.
func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("User")
		}
		return nil, err
	}
	return user, nil
}

// List returns every account ordered by id.
func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	return s.users.List(ctx)
}

// Create registers a new account. A duplicate email found up front is a
// conflict; one that slips past the check fails on the storage unique index.
func (s *UserService) Create(ctx context.Context, actor events.Actor, in CreateUserInput) (*domain.User, error) {
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperrors.NewConflict("Email already in use")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("hash password: %w", err))
	}

	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	user := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.publish(ctx, events.NewEvent(events.EventUserCreated, user.ID, actor,
		events.UserCreatedPayload{Email: user.Email, Role: user.Role}))
	return user, nil
}

// Delete removes an account. Tokens already issued to it stay valid until
// they expire.
func (s *UserService) Delete(ctx context.Context, actor events.Actor, id int64) error {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("User")
		}
		return err
	}

	s.publish(ctx, events.NewEvent(events.EventUserDeleted, id, actor,
		events.UserDeletedPayload{Email: user.Email}))
	return nil
}

// Seed creates the configured admin and user accounts when no account exists.
func (s *UserService) Seed(ctx context.Context, cfg config.SeedConfig) error {
	if !cfg.Enabled {
		return nil
	}
	count, err := s.users.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		s.logger.Info("users already exist, skipping seed")
		return nil
	}

	seeds := []CreateUserInput{
		{Name: "Admin User", Email: cfg.AdminEmail, Password: cfg.AdminPassword, Role: domain.RoleAdmin},
		{Name: "Regular User", Email: cfg.UserEmail, Password: cfg.UserPassword, Role: domain.RoleUser},
	}
	for _, seed := range seeds {
		if _, err := s.Create(ctx, events.Actor{}, seed); err != nil {
			return fmt.Errorf("seed %s: %w", seed.Email, err)
		}
		s.logger.Info("seed user created", zap.String("email", seed.Email), zap.String("role", string(seed.Role)))
	}
	return nil
}

func (s *UserService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}
