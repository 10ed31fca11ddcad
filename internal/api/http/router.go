package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/behnamfe76/gatekeeper/internal/api/dto"
	"github.com/behnamfe76/gatekeeper/internal/api/http/handlers"
	"github.com/behnamfe76/gatekeeper/internal/auth"
	"github.com/behnamfe76/gatekeeper/internal/domain"
	"github.com/behnamfe76/gatekeeper/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Auth    *handlers.AuthHandler
	Users   *handlers.UsersHandler
	GitHub  *handlers.GitHubHandler
	Builder *RouteBuilder
	Metrics *observability.Metrics
}

var adminOnly = auth.NewRoleSet(domain.RoleAdmin)

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health", cfg.Health.Live)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	cfg.Builder.Register(api.Group("/auth"),
		Route{Method: fiber.MethodPost, Path: "/login", Body: dto.LoginSchema, Handler: cfg.Auth.Login},
		Route{Method: fiber.MethodPost, Path: "/refresh", Auth: true, Handler: cfg.Auth.Refresh},
	)

	cfg.Builder.Register(api.Group("/users"),
		Route{Method: fiber.MethodGet, Path: "/me", Auth: true, Handler: cfg.Users.Me},
		Route{Method: fiber.MethodGet, Path: "/", Auth: true, Roles: adminOnly, Handler: cfg.Users.List},
		Route{Method: fiber.MethodPost, Path: "/", Body: dto.CreateUserSchema, Auth: true, Roles: adminOnly, Handler: cfg.Users.Create},
		Route{Method: fiber.MethodDelete, Path: "/:id", Params: dto.UserIDSchema, Auth: true, Roles: adminOnly, Handler: cfg.Users.Delete},
	)

	cfg.Builder.Register(api.Group("/github"),
		Route{Method: fiber.MethodGet, Path: "/profile/:username", Params: dto.GitHubUsernameSchema, Auth: true, Handler: cfg.GitHub.Profile},
		Route{Method: fiber.MethodGet, Path: "/repos/:username", Params: dto.GitHubUsernameSchema, Query: dto.PaginationSchema, Auth: true, Handler: cfg.GitHub.Repositories},
	)
}
