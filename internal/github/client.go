// Package github is a small client for the public GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/oauth2"

	"github.com/behnamfe76/gatekeeper/internal/config"
)

// ErrUserNotFound is returned when GitHub answers 404 for a user.
var ErrUserNotFound = errors.New("github user not found")

// StatusError reports an unexpected upstream status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("github responded with status %d", e.StatusCode)
}

// Profile mirrors GET /users/{username}.
type Profile struct {
	Login       string  `json:"login"`
	ID          int64   `json:"id"`
	AvatarURL   string  `json:"avatar_url"`
	Name        string  `json:"name"`
	Company     *string `json:"company"`
	Blog        string  `json:"blog"`
	Location    *string `json:"location"`
	Email       *string `json:"email"`
	Bio         *string `json:"bio"`
	PublicRepos int     `json:"public_repos"`
	Followers   int     `json:"followers"`
	Following   int     `json:"following"`
}

// Repository mirrors one entry of GET /users/{username}/repos.
type Repository struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	FullName        string  `json:"full_name"`
	Description     *string `json:"description"`
	HTMLURL         string  `json:"html_url"`
	StargazersCount int     `json:"stargazers_count"`
	WatchersCount   int     `json:"watchers_count"`
	ForksCount      int     `json:"forks_count"`
	Language        *string `json:"language"`
	UpdatedAt       string  `json:"updated_at"`
}

// Client calls the GitHub API, authenticated when a token is configured.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient builds a client from configuration.
func NewClient(cfg config.GitHubConfig) *Client {
	httpClient := &http.Client{}
	if cfg.Token != "" {
		httpClient = oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.Token,
			TokenType:   "token",
		}))
	}
	httpClient.Timeout = cfg.Timeout()
	return &Client{http: httpClient, baseURL: cfg.APIURL}
}

// GetProfile fetches a user's public profile.
func (c *Client) GetProfile(ctx context.Context, username string) (*Profile, error) {
	var profile Profile
	if err := c.get(ctx, "/users/"+url.PathEscape(username), nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetRepositories fetches one page of a user's repositories, most recently
// updated first.
func (c *Client) GetRepositories(ctx context.Context, username string, page, perPage int) ([]Repository, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(perPage))
	query.Set("sort", "updated")

	repos := make([]Repository, 0)
	if err := c.get(ctx, "/users/"+url.PathEscape(username)+"/repos", query, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build github request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("github request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrUserNotFound
	case resp.StatusCode != http.StatusOK:
		return &StatusError{StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode github response: %w", err)
	}
	return nil
}
