package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/behnamfe76/gatekeeper/internal/github"
	apperrors "github.com/behnamfe76/gatekeeper/pkg/util"
)

// GitHubClient is the upstream API used by GitHubService.
type GitHubClient interface {
	GetProfile(ctx context.Context, username string) (*github.Profile, error)
	GetRepositories(ctx context.Context, username string, page, perPage int) ([]github.Repository, error)
}

// GitHubService proxies GitHub lookups through a response cache.
type GitHubService struct {
	client GitHubClient
	cache  github.Cache
	logger *zap.Logger
}

// NewGitHubService builds the service.
func NewGitHubService(client GitHubClient, cache github.Cache, logger *zap.Logger) *GitHubService {
	return &GitHubService{client: client, cache: cache, logger: logger}
}

// Profile returns a user's GitHub profile.
func (s *GitHubService) Profile(ctx context.Context, username string) (*github.Profile, error) {
	key := "profile:" + strings.ToLower(username)

	var cached github.Profile
	if s.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	profile, err := s.client.GetProfile(ctx, username)
	if err != nil {
		return nil, upstreamError(err, "Failed to fetch GitHub profile")
	}
	s.store(ctx, key, profile)
	return profile, nil
}

// Repositories returns one page of a user's repositories.
func (s *GitHubService) Repositories(ctx context.Context, username string, page, perPage int) ([]github.Repository, error) {
	key := fmt.Sprintf("repos:%s:%d:%d", strings.ToLower(username), page, perPage)

	var cached []github.Repository
	if s.lookup(ctx, key, &cached) {
		return cached, nil
	}

	repos, err := s.client.GetRepositories(ctx, username, page, perPage)
	if err != nil {
		return nil, upstreamError(err, "Failed to fetch GitHub repositories")
	}
	s.store(ctx, key, repos)
	return repos, nil
}

// lookup treats cache failures as misses.
func (s *GitHubService) lookup(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.logger.Warn("github cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *GitHubService) store(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.logger.Warn("github cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func upstreamError(err error, message string) error {
	if errors.Is(err, github.ErrUserNotFound) {
		return apperrors.NewNotFound("GitHub user")
	}
	return apperrors.NewUpstreamError(message, err)
}
