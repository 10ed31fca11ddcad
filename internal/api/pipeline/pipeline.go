// Package pipeline runs the per-route request stages. Each stage either lets
// the request continue or short-circuits it with an error that becomes the
// response; the first short-circuit ends the run.
package pipeline

import "github.com/gofiber/fiber/v2"

// Outcome is what a stage decides: continue, or stop with a failure.
type Outcome struct {
	err error
}

// Continue lets the request proceed to the next stage.
func Continue() Outcome {
	return Outcome{}
}

// ShortCircuit stops the request; err is rendered as the response.
func ShortCircuit(err error) Outcome {
	return Outcome{err: err}
}

// Halted reports whether the stage stopped the request.
func (o Outcome) Halted() bool {
	return o.err != nil
}

// Err returns the failure carried by a short-circuit, or nil.
func (o Outcome) Err() error {
	return o.err
}

// Stage inspects, and may normalize, a request.
type Stage func(c *fiber.Ctx) Outcome

// Run executes stages in order and returns the first short-circuit, or Continue.
func Run(c *fiber.Ctx, stages []Stage) Outcome {
	for _, stage := range stages {
		if out := stage(c); out.Halted() {
			return out
		}
	}
	return Continue()
}

// HaltFunc writes the response for a short-circuited request.
type HaltFunc func(c *fiber.Ctx, err error) error

// Handler wraps final behind stages. Errors returned by final are passed up
// to the app's error middleware untouched.
func Handler(stages []Stage, final fiber.Handler, halt HaltFunc) fiber.Handler {
	frozen := append([]Stage(nil), stages...)
	return func(c *fiber.Ctx) error {
		if out := Run(c, frozen); out.Halted() {
			return halt(c, out.Err())
		}
		return final(c)
	}
}
