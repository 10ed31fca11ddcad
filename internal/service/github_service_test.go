package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/behnamfe76/gatekeeper/internal/github"
	apperrors "github.com/behnamfe76/gatekeeper/pkg/util"
)

type stubGitHubClient struct {
	profileCalls int
	repoCalls    int
	err          error
}

func (s *stubGitHubClient) GetProfile(_ context.Context, username string) (*github.Profile, error) {
	s.profileCalls++
	if s.err != nil {
		return nil, s.err
	}
	return &github.Profile{Login: username}, nil
}

func (s *stubGitHubClient) GetRepositories(_ context.Context, username string, page, perPage int) ([]github.Repository, error) {
	s.repoCalls++
	if s.err != nil {
		return nil, s.err
	}
	return []github.Repository{{Name: username, ID: int64(page), ForksCount: perPage}}, nil
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string, any) (bool, error) {
	return false, errors.New("cache offline")
}

func (brokenCache) Set(context.Context, string, any) error {
	return errors.New("cache offline")
}

func TestGitHubService_ProfileIsCached(t *testing.T) {
	client := &stubGitHubClient{}
	svc := NewGitHubService(client, github.NewMemoryCache(8, time.Minute), zap.NewNop())
	ctx := context.Background()

	first, err := svc.Profile(ctx, "Octocat")
	require.NoError(t, err)
	second, err := svc.Profile(ctx, "octocat")
	require.NoError(t, err)

	assert.Equal(t, "Octocat", first.Login)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, client.profileCalls)
}

func TestGitHubService_RepositoriesKeyedByPage(t *testing.T) {
	client := &stubGitHubClient{}
	svc := NewGitHubService(client, github.NewMemoryCache(8, time.Minute), zap.NewNop())
	ctx := context.Background()

	_, err := svc.Repositories(ctx, "octocat", 1, 30)
	require.NoError(t, err)
	_, err = svc.Repositories(ctx, "octocat", 1, 30)
	require.NoError(t, err)
	repos, err := svc.Repositories(ctx, "octocat", 2, 30)
	require.NoError(t, err)

	assert.Equal(t, 2, client.repoCalls)
	assert.EqualValues(t, 2, repos[0].ID)
}

func TestGitHubService_CacheFailureFallsThrough(t *testing.T) {
	client := &stubGitHubClient{}
	svc := NewGitHubService(client, brokenCache{}, zap.NewNop())

	profile, err := svc.Profile(context.Background(), "octocat")
	require.NoError(t, err)
	assert.Equal(t, "octocat", profile.Login)
}

func TestGitHubService_UpstreamErrors(t *testing.T) {
	svc := NewGitHubService(&stubGitHubClient{err: github.ErrUserNotFound}, nil, zap.NewNop())
	_, err := svc.Profile(context.Background(), "ghost")
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.Status)
	assert.Equal(t, "GitHub user not found", appErr.Message)

	upstream := &github.StatusError{StatusCode: 502}
	svc = NewGitHubService(&stubGitHubClient{err: upstream}, nil, zap.NewNop())
	_, err = svc.Repositories(context.Background(), "octocat", 1, 30)
	appErr, ok = apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindUpstream, appErr.Kind)
	assert.Equal(t, "Failed to fetch GitHub repositories", appErr.Message)
	assert.ErrorIs(t, err, upstream)
}
