package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/behnamfe76/gatekeeper/internal/api/pipeline"
	"github.com/behnamfe76/gatekeeper/internal/auth"
	"github.com/behnamfe76/gatekeeper/internal/observability"
	"github.com/behnamfe76/gatekeeper/internal/validation"
	apperrors "github.com/behnamfe76/gatekeeper/pkg/util"
)

// Route is the static declaration of one endpoint and the checks guarding it.
type Route struct {
	Method  string
	Path    string
	Body    validation.Schema
	Params  validation.Schema
	Query   validation.Schema
	Auth    bool
	Roles   auth.RoleSet
	Handler fiber.Handler
}

// RouteBuilder turns Route declarations into fiber handlers.
type RouteBuilder struct {
	authenticator *auth.Authenticator
	halt          pipeline.HaltFunc
	logger        *zap.Logger
}

// NewRouteBuilder constructs a builder sharing one authenticator and error mapper.
func NewRouteBuilder(authenticator *auth.Authenticator, mapper *apperrors.Mapper, logger *zap.Logger, metrics *observability.Metrics) *RouteBuilder {
	return &RouteBuilder{
		authenticator: authenticator,
		halt:          haltHandler(logger, metrics, mapper),
		logger:        logger,
	}
}

// Stages lists the checks for r in their fixed order: validation, then
// authentication, then authorization.
func (b *RouteBuilder) Stages(r Route) []pipeline.Stage {
	var stages []pipeline.Stage
	if r.Params != nil {
		stages = append(stages, validation.Stage(r.Params, validation.SegmentParams))
	}
	if r.Query != nil {
		stages = append(stages, validation.Stage(r.Query, validation.SegmentQuery))
	}
	if r.Body != nil {
		stages = append(stages, validation.Stage(r.Body, validation.SegmentBody))
	}
	if r.Auth {
		stages = append(stages, b.authenticator.Stage())
	}
	if !r.Roles.Empty() {
		stages = append(stages, auth.Authorize(r.Roles))
	}
	return stages
}

// Register mounts routes on router.
func (b *RouteBuilder) Register(router fiber.Router, routes ...Route) {
	for _, r := range routes {
		router.Add(r.Method, r.Path, pipeline.Handler(b.Stages(r), r.Handler, b.halt))
		b.logger.Debug("route registered",
			zap.String("method", r.Method),
			zap.String("path", r.Path),
			zap.Bool("auth", r.Auth),
			zap.Stringer("roles", r.Roles))
	}
}
