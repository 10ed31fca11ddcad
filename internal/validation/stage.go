package validation

import (
	"github.com/gofiber/fiber/v2"

	"github.com/behnamfe76/gatekeeper/internal/api/pipeline"
	apperrors "github.com/behnamfe76/gatekeeper/pkg/util"
)

func localsKey(segment Segment) string {
	return "validated_" + string(segment)
}

// Stage returns a pipeline stage that parses segment with schema. On success
// the normalized value is stored for Value; on failure the request stops with
// every violation found.
func Stage(schema Schema, segment Segment) pipeline.Stage {
	return func(c *fiber.Ctx) pipeline.Outcome {
		value, violations, err := schema.Parse(c, segment)
		if err != nil {
			return pipeline.ShortCircuit(apperrors.NewInternalError(err))
		}
		if len(violations) > 0 {
			return pipeline.ShortCircuit(apperrors.NewValidationError(violations))
		}
		c.Locals(localsKey(segment), value)
		return pipeline.Continue()
	}
}

// Value returns the normalized value stored for segment by Stage.
func Value[T any](c *fiber.Ctx, segment Segment) (T, bool) {
	value, ok := c.Locals(localsKey(segment)).(T)
	return value, ok
}
