package dto

import (
	"errors"
	"strconv"
	"strings"

	ozzo "github.com/go-ozzo/ozzo-validation"

	"github.com/behnamfe76/gatekeeper/internal/validation"
)

const (
	defaultPage    = 1
	defaultPerPage = 30
	maxPerPage     = 100
)

// GitHubUsernameParams is the raw :username route parameter.
type GitHubUsernameParams struct {
	Username string `params:"username"`
}

// GitHubUsername is the trimmed username.
type GitHubUsername struct {
	Username string
}

// GitHubUsernameSchema validates the :username parameter.
var GitHubUsernameSchema = validation.NewObject(
	validation.F("username", func(p *GitHubUsernameParams) interface{} { return p.Username },
		ozzo.Required.Error("Username is required")),
).Normalize(func(p GitHubUsernameParams) (any, error) {
	username := strings.TrimSpace(p.Username)
	if username == "" {
		return nil, ozzo.Errors{"username": errors.New("Username cannot be empty")}
	}
	return GitHubUsername{Username: username}, nil
})

// PaginationQuery is the raw ?page=&per_page= query.
type PaginationQuery struct {
	Page    string `query:"page"`
	PerPage string `query:"per_page"`
}

// Pagination is the normalized PaginationQuery.
type Pagination struct {
	Page    int
	PerPage int
}

// PaginationSchema validates and defaults paging parameters.
var PaginationSchema = validation.NewObject(
	validation.F("page", func(q *PaginationQuery) interface{} { return q.Page },
		ozzo.Match(digitsOnly).Error("page must be a number")),
	validation.F("per_page", func(q *PaginationQuery) interface{} { return q.PerPage },
		ozzo.Match(digitsOnly).Error("per_page must be a number")),
).Normalize(func(q PaginationQuery) (any, error) {
	p := Pagination{Page: defaultPage, PerPage: defaultPerPage}
	errs := ozzo.Errors{}
	if q.Page != "" {
		page, err := strconv.Atoi(q.Page)
		if err != nil || page < 1 {
			errs["page"] = errors.New("page must be at least 1")
		}
		p.Page = page
	}
	if q.PerPage != "" {
		perPage, err := strconv.Atoi(q.PerPage)
		if err != nil || perPage < 1 || perPage > maxPerPage {
			errs["per_page"] = errors.New("per_page must be between 1 and 100")
		}
		p.PerPage = perPage
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return p, nil
})
