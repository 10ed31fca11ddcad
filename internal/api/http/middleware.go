package http

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"github.com/behnamfe76/gatekeeper/internal/observability"
	apperrors "github.com/behnamfe76/gatekeeper/pkg/util"
)

// MiddlewareConfig bundles dependencies for the global middlewares.
type MiddlewareConfig struct {
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Errors      *apperrors.Mapper
	Timeout     time.Duration
	CORSOrigins string
}

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, cfg MiddlewareConfig) {
	app.Use(observability.RequestLogger(cfg.Logger, cfg.Metrics))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: strings.Join([]string{
			fiber.HeaderOrigin,
			fiber.HeaderContentType,
			fiber.HeaderAccept,
			fiber.HeaderAuthorization,
			observability.HeaderRequestID,
		}, ","),
	}))
	app.Use(errorHandlingMiddleware(cfg.Logger, cfg.Metrics, cfg.Errors))
	if cfg.Timeout > 0 {
		app.Use(requestTimeoutMiddleware(cfg.Timeout))
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// errorHandlingMiddleware is the single place where handler failures become
// responses. Panics are reported as internal errors.
func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics, mapper *apperrors.Mapper) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				appErr := mapper.Map(err)
				metrics.RecordError(c.Route().Path, c.Method(), appErr.Code())
				if appErr.Status >= fiber.StatusInternalServerError {
					logger.Error("request failed",
						zap.String("request_id", observability.RequestID(c)),
						zap.String("code", appErr.Code()),
						zap.Error(appErr))
				}
				c.Status(appErr.Status)
				_ = c.JSON(mapper.Body(appErr))
				err = nil
			}
		}()
		return c.Next()
	}
}

// haltHandler writes the response for a request stopped by a pipeline stage.
func haltHandler(logger *zap.Logger, metrics *observability.Metrics, mapper *apperrors.Mapper) func(c *fiber.Ctx, err error) error {
	return func(c *fiber.Ctx, err error) error {
		appErr := mapper.Map(err)
		metrics.RecordError(c.Route().Path, c.Method(), appErr.Code())
		logger.Debug("request short-circuited",
			zap.String("request_id", observability.RequestID(c)),
			zap.String("code", appErr.Code()),
			zap.Int("status", appErr.Status))
		return c.Status(appErr.Status).JSON(mapper.Body(appErr))
	}
}
