// Package authorization decides whether a user may perform an action
// inside an organization, based on active membership and role rank.
package authorization

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	orgdomain "github.com/smallbiznis/planora/internal/organization/domain"
	"github.com/smallbiznis/planora/internal/rbac"
)

var (
	ErrNotAMember = errors.New("not_a_member")
	ErrForbidden  = errors.New("forbidden")
)

// Decision records a granted authorization. It is only returned on the
// allow path so handlers can reuse the membership lookup.
type Decision struct {
	Membership   *orgdomain.Membership
	RequiredRole rbac.Role
}

type Service interface {
	Authorize(ctx context.Context, userID, orgID snowflake.ID, action string) (*Decision, error)
}
