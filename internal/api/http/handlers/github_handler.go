package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/behnamfe76/gatekeeper/internal/api/dto"
	"github.com/behnamfe76/gatekeeper/internal/service"
	"github.com/behnamfe76/gatekeeper/internal/validation"
	apperrors "github.com/behnamfe76/gatekeeper/pkg/util"
)

// GitHubHandler proxies GitHub lookups.
type GitHubHandler struct {
	github *service.GitHubService
}

// NewGitHubHandler constructs handler.
func NewGitHubHandler(githubService *service.GitHubService) *GitHubHandler {
	return &GitHubHandler{github: githubService}
}

// Profile handles GET /api/github/profile/:username.
func (h *GitHubHandler) Profile(c *fiber.Ctx) error {
	params, ok := validation.Value[dto.GitHubUsername](c, validation.SegmentParams)
	if !ok {
		return apperrors.NewBadRequest("Username is required")
	}

	profile, err := h.github.Profile(c.UserContext(), params.Username)
	if err != nil {
		return err
	}
	return c.JSON(profile)
}

// Repositories handles GET /api/github/repos/:username.
func (h *GitHubHandler) Repositories(c *fiber.Ctx) error {
	params, ok := validation.Value[dto.GitHubUsername](c, validation.SegmentParams)
	if !ok {
		return apperrors.NewBadRequest("Username is required")
	}
	paging, ok := validation.Value[dto.Pagination](c, validation.SegmentQuery)
	if !ok {
		paging = dto.Pagination{Page: 1, PerPage: 30}
	}

	repos, err := h.github.Repositories(c.UserContext(), params.Username, paging.Page, paging.PerPage)
	if err != nil {
		return err
	}
	return c.JSON(repos)
}
