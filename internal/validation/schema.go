// Package validation checks and normalizes request segments against declared
// schemas before any handler sees them.
package validation

import (
	"encoding/json"
	"errors"
	"sort"

	ozzo "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/behnamfe76/gatekeeper/pkg/util"
)

// Segment names the part of the request a schema applies to.
type Segment string

const (
	SegmentBody   Segment = "body"
	SegmentParams Segment = "params"
	SegmentQuery  Segment = "query"
)

// Schema parses one request segment into a normalized value or a list of
// violations. A non-nil error means the schema itself failed, not the input.
type Schema interface {
	Parse(c *fiber.Ctx, segment Segment) (any, []apperrors.Violation, error)
}

// Field binds a path to a value extractor and the rules checked against it.
type Field[T any] struct {
	path  string
	value func(*T) interface{}
	rules []ozzo.Rule
}

// F declares a field of T. Rules run in order; the first failure is reported.
func F[T any](path string, value func(*T) interface{}, rules ...ozzo.Rule) Field[T] {
	return Field[T]{path: path, value: value, rules: rules}
}

// Object is a schema over a struct type T. Segment values are decoded into T
// using the `json`, `params` and `query` struct tags respectively.
type Object[T any] struct {
	fields    []Field[T]
	normalize func(T) (any, error)
}

// NewObject declares a schema. Violations are reported in field order.
func NewObject[T any](fields ...Field[T]) *Object[T] {
	return &Object[T]{fields: fields}
}

// Normalize sets a conversion applied to valid input. Its result replaces the
// segment value seen by later stages.
func (o *Object[T]) Normalize(fn func(T) (any, error)) *Object[T] {
	o.normalize = fn
	return o
}

// Parse implements Schema. A field with the wrong JSON type is reported in
// place of its rules; every other field is still checked.
func (o *Object[T]) Parse(c *fiber.Ctx, segment Segment) (any, []apperrors.Violation, error) {
	var target T
	mistyped, malformed := decode(c, segment, &target)
	if malformed != nil {
		return nil, []apperrors.Violation{*malformed}, nil
	}
	violations, err := o.validate(&target, mistyped)
	if err != nil || len(violations) > 0 {
		return nil, violations, err
	}
	if o.normalize == nil {
		return target, nil, nil
	}
	normalized, err := o.normalize(target)
	if err != nil {
		return nil, toViolations(segment, err), nil
	}
	return normalized, nil, nil
}

// Validate runs every field's rules against v and collects all failures.
func (o *Object[T]) Validate(v *T) ([]apperrors.Violation, error) {
	return o.validate(v, nil)
}

func (o *Object[T]) validate(v *T, mistyped *apperrors.Violation) ([]apperrors.Violation, error) {
	var violations []apperrors.Violation
	reported := mistyped == nil
	for _, field := range o.fields {
		if mistyped != nil && field.path == mistyped.Path {
			violations = append(violations, *mistyped)
			reported = true
			continue
		}
		err := ozzo.Validate(field.value(v), field.rules...)
		if err == nil {
			continue
		}
		var internal ozzo.InternalError
		if errors.As(err, &internal) {
			return nil, internal.InternalError()
		}
		violations = append(violations, apperrors.Violation{Path: field.path, Message: err.Error()})
	}
	if !reported {
		violations = append([]apperrors.Violation{*mistyped}, violations...)
	}
	return violations, nil
}

// decode fills target from segment. A JSON type mismatch leaves the rest of
// target decoded and is returned as mistyped; anything else that stops
// decoding is returned as malformed.
func decode(c *fiber.Ctx, segment Segment, target any) (mistyped, malformed *apperrors.Violation) {
	var err error
	switch segment {
	case SegmentBody:
		body := c.Body()
		if len(body) == 0 {
			return nil, nil
		}
		err = c.App().Config().JSONDecoder(body, target)
	case SegmentParams:
		err = c.ParamsParser(target)
	case SegmentQuery:
		err = c.QueryParser(target)
	default:
		return nil, &apperrors.Violation{Path: string(segment), Message: "unknown request segment"}
	}
	if err == nil {
		return nil, nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return &apperrors.Violation{Path: typeErr.Field, Message: "must be of type " + typeErr.Type.String()}, nil
	}
	return nil, &apperrors.Violation{Path: string(segment), Message: "malformed " + string(segment)}
}

func toViolations(segment Segment, err error) []apperrors.Violation {
	var fieldErrs ozzo.Errors
	if !errors.As(err, &fieldErrs) {
		return []apperrors.Violation{{Path: string(segment), Message: err.Error()}}
	}
	paths := make([]string, 0, len(fieldErrs))
	for path := range fieldErrs {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	violations := make([]apperrors.Violation, 0, len(paths))
	for _, path := range paths {
		violations = append(violations, apperrors.Violation{Path: path, Message: fieldErrs[path].Error()})
	}
	return violations
}
