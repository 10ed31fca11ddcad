package http

import (
	"github.com/gofiber/fiber/v2"
)

// NewApp builds the fiber application with global middlewares and routes.
func NewApp(appName string, middlewares MiddlewareConfig, routes RouteConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, middlewares)
	RegisterRoutes(app, routes)
	return app
}
