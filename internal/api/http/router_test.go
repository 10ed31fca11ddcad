package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/behnamfe76/gatekeeper/internal/api/dto"
	"github.com/behnamfe76/gatekeeper/internal/api/http/handlers"
	"github.com/behnamfe76/gatekeeper/internal/auth"
	"github.com/behnamfe76/gatekeeper/internal/domain"
	"github.com/behnamfe76/gatekeeper/internal/events"
	"github.com/behnamfe76/gatekeeper/internal/github"
	"github.com/behnamfe76/gatekeeper/internal/observability"
	"github.com/behnamfe76/gatekeeper/internal/repository"
	"github.com/behnamfe76/gatekeeper/internal/service"
	apperrors "github.com/behnamfe76/gatekeeper/pkg/util"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin123"
	userEmail     = "user@example.com"
	userPassword  = "user123"
)

type fakeGitHub struct {
	calls int
}

func (f *fakeGitHub) GetProfile(_ context.Context, username string) (*github.Profile, error) {
	f.calls++
	if username == "ghost" {
		return nil, github.ErrUserNotFound
	}
	return &github.Profile{Login: username, ID: 1}, nil
}

func (f *fakeGitHub) GetRepositories(_ context.Context, username string, page, perPage int) ([]github.Repository, error) {
	f.calls++
	return []github.Repository{{ID: int64(page*1000 + perPage), Name: username + "-repo"}}, nil
}

type testServer struct {
	app    *fiber.App
	repo   repository.UserRepository
	github *fakeGitHub
	now    time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		repo:   repository.NewMemoryUserRepository(),
		github: &fakeGitHub{},
		now:    time.Now(),
	}
	logger := zap.NewNop()

	tokens, err := auth.NewTokenCodec("router-test-secret", 30*time.Minute, auth.WithClock(func() time.Time { return ts.now }))
	require.NoError(t, err)
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	dispatcher := events.NewInMemoryDispatcher()

	users := service.NewUserService(ts.repo, hasher, dispatcher, logger)
	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:   ts.repo,
		Hasher:     hasher,
		Tokens:     tokens,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	githubService := service.NewGitHubService(ts.github, github.NewMemoryCache(16, time.Minute), logger)

	ctx := context.Background()
	_, err = users.Create(ctx, events.Actor{}, service.CreateUserInput{Name: "Admin", Email: adminEmail, Password: adminPassword, Role: domain.RoleAdmin})
	require.NoError(t, err)
	_, err = users.Create(ctx, events.Actor{}, service.CreateUserInput{Name: "User", Email: userEmail, Password: userPassword, Role: domain.RoleUser})
	require.NoError(t, err)

	metrics := observability.NewMetrics("test")
	mapper := apperrors.NewMapper(true)
	ts.app = NewApp("gatekeeper-test",
		MiddlewareConfig{Logger: logger, Metrics: metrics, Errors: mapper, Timeout: 5 * time.Second, CORSOrigins: "*"},
		RouteConfig{
			Health:  handlers.NewHealthHandler("gatekeeper-test", "test", nil, nil),
			Auth:    handlers.NewAuthHandler(authService, users),
			Users:   handlers.NewUsersHandler(users),
			GitHub:  handlers.NewGitHubHandler(githubService),
			Builder: NewRouteBuilder(auth.NewAuthenticator(tokens), mapper, logger, metrics),
			Metrics: metrics,
		},
	)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func (ts *testServer) login(t *testing.T, email, password string) dto.AuthResponse {
	t.Helper()
	status, raw := ts.do(t, fiber.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: email, Password: password})
	require.Equal(t, fiber.StatusOK, status, string(raw))
	var resp dto.AuthResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	return resp
}

func decodeError(t *testing.T, raw []byte) apperrors.ErrorBody {
	t.Helper()
	var body apperrors.ErrorBody
	require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	return body
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	status, _ := ts.do(t, fiber.MethodGet, "/health", "", nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, raw := ts.do(t, fiber.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(raw), `"postgres":"disabled"`)
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.login(t, adminEmail, adminPassword)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, adminEmail, resp.User.Email)
	assert.Equal(t, domain.RoleAdmin, resp.User.Role)
	assert.WithinDuration(t, ts.now.Add(30*time.Minute), resp.ExpiresAt, time.Second)

	status, raw := ts.do(t, fiber.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: adminEmail, Password: "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeError(t, raw).Code)

	status, raw = ts.do(t, fiber.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeError(t, raw).Code)

	status, raw = ts.do(t, fiber.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: "not-an-email", Password: "x"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	body := decodeError(t, raw)
	assert.Equal(t, "VALIDATION_FAILED", body.Code)
	assert.Equal(t, []apperrors.Violation{{Path: "email", Message: "Invalid email"}}, body.Details)
}

func TestAuthentication(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, userEmail, userPassword).Token

	status, raw := ts.do(t, fiber.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	body := decodeError(t, raw)
	assert.Equal(t, "NO_TOKEN", body.Code)
	assert.Equal(t, "No token provided", body.Error)

	status, raw = ts.do(t, fiber.MethodGet, "/api/users/me", token[:len(token)-2]+"xx", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_TOKEN", decodeError(t, raw).Code)

	status, raw = ts.do(t, fiber.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	var me dto.UserResponse
	require.NoError(t, json.Unmarshal(raw, &me))
	assert.Equal(t, userEmail, me.Email)
	assert.NotContains(t, string(raw), "password")

	ts.now = ts.now.Add(31 * time.Minute)
	status, raw = ts.do(t, fiber.MethodGet, "/api/users/me", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	body = decodeError(t, raw)
	assert.Equal(t, "TOKEN_EXPIRED", body.Code)
	assert.Equal(t, "Token expired. Please login again", body.Error)
}

func TestAuthorization(t *testing.T) {
	ts := newTestServer(t)
	adminToken := ts.login(t, adminEmail, adminPassword).Token
	userToken := ts.login(t, userEmail, userPassword).Token

	status, raw := ts.do(t, fiber.MethodGet, "/api/users", userToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	body := decodeError(t, raw)
	assert.Equal(t, "INSUFFICIENT_PERMISSIONS", body.Code)
	assert.Equal(t, "Forbidden: Insufficient permissions", body.Error)

	status, raw = ts.do(t, fiber.MethodGet, "/api/users", adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	var users []dto.UserResponse
	require.NoError(t, json.Unmarshal(raw, &users))
	require.Len(t, users, 2)
	assert.Equal(t, adminEmail, users[0].Email)
	assert.Equal(t, userEmail, users[1].Email)
}

func TestCreateUser(t *testing.T) {
	ts := newTestServer(t)
	adminToken := ts.login(t, adminEmail, adminPassword).Token
	ctx := context.Background()

	t.Run("validation failure stops before the handler", func(t *testing.T) {
		status, raw := ts.do(t, fiber.MethodPost, "/api/users", adminToken, map[string]string{
			"name": "Bob", "password": "secret1", "role": "user",
		})
		assert.Equal(t, fiber.StatusBadRequest, status)
		body := decodeError(t, raw)
		assert.Equal(t, "VALIDATION_FAILED", body.Code)
		assert.Equal(t, "Invalid data", body.Error)
		require.Len(t, body.Details, 1)
		assert.Equal(t, "email", body.Details[0].Path)

		count, err := ts.repo.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 2, count)
	})

	t.Run("every violation is reported", func(t *testing.T) {
		status, raw := ts.do(t, fiber.MethodPost, "/api/users", adminToken, map[string]string{
			"name": "B", "email": "bad", "password": "123", "role": "root",
		})
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, []apperrors.Violation{
			{Path: "name", Message: "Name too short"},
			{Path: "email", Message: "Invalid email"},
			{Path: "password", Message: "Password too short"},
			{Path: "role", Message: "Invalid role"},
		}, decodeError(t, raw).Details)
	})

	t.Run("a mistyped field does not hide the others", func(t *testing.T) {
		status, raw := ts.do(t, fiber.MethodPost, "/api/users", adminToken, map[string]any{
			"name": 5, "email": "bad", "role": "root",
		})
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, []apperrors.Violation{
			{Path: "name", Message: "must be of type string"},
			{Path: "email", Message: "Invalid email"},
			{Path: "password", Message: "cannot be blank"},
			{Path: "role", Message: "Invalid role"},
		}, decodeError(t, raw).Details)
	})

	t.Run("validation runs before authentication", func(t *testing.T) {
		status, raw := ts.do(t, fiber.MethodPost, "/api/users", "", map[string]string{})
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, "VALIDATION_FAILED", decodeError(t, raw).Code)
	})

	t.Run("created", func(t *testing.T) {
		status, raw := ts.do(t, fiber.MethodPost, "/api/users", adminToken, dto.CreateUserRequest{
			Name: "Carol", Email: "carol@example.com", Password: "secret1", Role: "user",
		})
		require.Equal(t, fiber.StatusCreated, status, string(raw))
		var created dto.UserResponse
		require.NoError(t, json.Unmarshal(raw, &created))
		assert.Equal(t, "carol@example.com", created.Email)
		assert.Equal(t, domain.RoleUser, created.Role)
		assert.NotZero(t, created.ID)

		resp := ts.login(t, "carol@example.com", "secret1")
		assert.Equal(t, created.ID, resp.User.ID)
	})

	t.Run("password longer than bcrypt accepts", func(t *testing.T) {
		status, raw := ts.do(t, fiber.MethodPost, "/api/users", adminToken, dto.CreateUserRequest{
			Name: "Dave", Email: "dave@example.com", Password: strings.Repeat("a", 100), Role: "user",
		})
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, []apperrors.Violation{{Path: "password", Message: "Password too long"}}, decodeError(t, raw).Details)

		status, raw = ts.do(t, fiber.MethodPost, "/api/users", adminToken, dto.CreateUserRequest{
			Name: "Dave", Email: "dave@example.com", Password: strings.Repeat("é", 40), Role: "user",
		})
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, "password", decodeError(t, raw).Details[0].Path)
	})

	t.Run("password at the bcrypt limit", func(t *testing.T) {
		password := strings.Repeat("a", 72)
		status, raw := ts.do(t, fiber.MethodPost, "/api/users", adminToken, dto.CreateUserRequest{
			Name: "Erin", Email: "erin@example.com", Password: password, Role: "user",
		})
		require.Equal(t, fiber.StatusCreated, status, string(raw))
		ts.login(t, "erin@example.com", password)
	})

	t.Run("duplicate email", func(t *testing.T) {
		status, raw := ts.do(t, fiber.MethodPost, "/api/users", adminToken, dto.CreateUserRequest{
			Name: "Other", Email: userEmail, Password: "secret1", Role: "user",
		})
		assert.Equal(t, fiber.StatusConflict, status)
		body := decodeError(t, raw)
		assert.Equal(t, "CONFLICT", body.Code)
		assert.Equal(t, "Email already in use", body.Error)
	})
}

func TestDeleteUser(t *testing.T) {
	ts := newTestServer(t)
	adminToken := ts.login(t, adminEmail, adminPassword).Token
	user := ts.login(t, userEmail, userPassword)

	status, raw := ts.do(t, fiber.MethodDelete, "/api/users/abc", adminToken, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, []apperrors.Violation{{Path: "id", Message: "ID must be a number"}}, decodeError(t, raw).Details)

	status, raw = ts.do(t, fiber.MethodDelete, "/api/users/99999999999999999999", adminToken, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, []apperrors.Violation{{Path: "id", Message: "ID is out of range"}}, decodeError(t, raw).Details)

	status, raw = ts.do(t, fiber.MethodDelete, "/api/users/999", adminToken, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "User not found", decodeError(t, raw).Error)

	status, _ = ts.do(t, fiber.MethodDelete, "/api/users/2", user.Token, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = ts.do(t, fiber.MethodDelete, "/api/users/2", adminToken, nil)
	assert.Equal(t, fiber.StatusNoContent, status)

	_, err := ts.repo.GetByID(context.Background(), 2)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// Tokens outlive the account they were issued to.
	status, raw = ts.do(t, fiber.MethodGet, "/api/users/me", user.Token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", decodeError(t, raw).Code)
}

func TestRefresh(t *testing.T) {
	ts := newTestServer(t)
	original := ts.login(t, userEmail, userPassword)

	status, _ := ts.do(t, fiber.MethodPost, "/api/auth/refresh", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	ts.now = ts.now.Add(10 * time.Minute)
	status, raw := ts.do(t, fiber.MethodPost, "/api/auth/refresh", original.Token, nil)
	require.Equal(t, fiber.StatusOK, status, string(raw))

	var refreshed dto.AuthResponse
	require.NoError(t, json.Unmarshal(raw, &refreshed))
	assert.NotEqual(t, original.Token, refreshed.Token)
	assert.True(t, refreshed.ExpiresAt.After(original.ExpiresAt))
	assert.Equal(t, original.User.ID, refreshed.User.ID)

	// The presented token stays valid.
	status, _ = ts.do(t, fiber.MethodGet, "/api/users/me", original.Token, nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestGitHubProxy(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, userEmail, userPassword).Token

	status, _ := ts.do(t, fiber.MethodGet, "/api/github/profile/octocat", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, raw := ts.do(t, fiber.MethodGet, "/api/github/profile/octocat", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	var profile github.Profile
	require.NoError(t, json.Unmarshal(raw, &profile))
	assert.Equal(t, "octocat", profile.Login)

	status, _ = ts.do(t, fiber.MethodGet, "/api/github/profile/octocat", token, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 1, ts.github.calls, "second lookup served from cache")

	status, raw = ts.do(t, fiber.MethodGet, "/api/github/profile/ghost", token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "GitHub user not found", decodeError(t, raw).Error)

	status, raw = ts.do(t, fiber.MethodGet, "/api/github/repos/octocat?page=2&per_page=10", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	var repos []github.Repository
	require.NoError(t, json.Unmarshal(raw, &repos))
	require.Len(t, repos, 1)
	assert.EqualValues(t, 2010, repos[0].ID)

	status, raw = ts.do(t, fiber.MethodGet, "/api/github/repos/octocat", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &repos))
	assert.EqualValues(t, 1030, repos[0].ID)

	status, raw = ts.do(t, fiber.MethodGet, "/api/github/repos/octocat?per_page=500", token, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "per_page", decodeError(t, raw).Details[0].Path)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	status, raw := ts.do(t, fiber.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", decodeError(t, raw).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, fiber.MethodGet, "/api/users/me", "", nil)

	status, raw := ts.do(t, fiber.MethodGet, "/metrics", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(raw), "test_http_requests_total")
	assert.Contains(t, string(raw), `test_http_errors_total{code="NO_TOKEN"`)
}
