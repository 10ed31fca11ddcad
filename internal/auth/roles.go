package auth

import (
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/behnamfe76/gatekeeper/internal/api/pipeline"
	"github.com/behnamfe76/gatekeeper/internal/domain"
	apperrors "github.com/behnamfe76/gatekeeper/pkg/util"
)

// RoleSet is the set of roles a route accepts. Membership is exact: no role
// implies another.
type RoleSet map[domain.Role]struct{}

// NewRoleSet builds a set from roles.
func NewRoleSet(roles ...domain.Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, role := range roles {
		set[role] = struct{}{}
	}
	return set
}

// Contains reports whether role is in the set.
func (s RoleSet) Contains(role domain.Role) bool {
	_, ok := s[role]
	return ok
}

// Empty reports whether the set places no role requirement.
func (s RoleSet) Empty() bool {
	return len(s) == 0
}

func (s RoleSet) String() string {
	names := make([]string, 0, len(s))
	for role := range s {
		names = append(names, string(role))
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// Authorize returns a stage accepting only callers whose role is in allowed.
func Authorize(allowed RoleSet) pipeline.Stage {
	return func(c *fiber.Ctx) pipeline.Outcome {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return pipeline.ShortCircuit(apperrors.NewUnauthorized())
		}
		if !allowed.Contains(identity.Role) {
			return pipeline.ShortCircuit(apperrors.NewForbidden())
		}
		return pipeline.Continue()
	}
}
