package authorization

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	orgdomain "github.com/smallbiznis/planora/internal/organization/domain"
	"github.com/smallbiznis/planora/internal/rbac"
	"go.uber.org/zap"
)

type service struct {
	log     *zap.Logger
	catalog *rbac.Catalog
	members orgdomain.Repository
}

func NewService(log *zap.Logger, catalog *rbac.Catalog, members orgdomain.Repository) Service {
	return &service{
		log:     log.Named("authorization"),
		catalog: catalog,
		members: members,
	}
}

// Authorize resolves the action's required role, loads the caller's active
// membership and compares ranks. Evaluation fails closed: unknown actions,
// missing organizations and missing or inactive memberships all deny.
func (s *service) Authorize(ctx context.Context, userID, orgID snowflake.ID, action string) (*Decision, error) {
	required, err := s.catalog.RequiredRole(action)
	if err != nil {
		s.log.Warn("authorization requested for unknown action",
			zap.String("action", action),
		)
		return nil, err
	}

	membership, err := s.members.GetActiveMembership(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, orgdomain.ErrMemberNotFound) {
			if _, orgErr := s.members.GetOrganization(ctx, orgID); orgErr != nil {
				return nil, orgErr
			}
			return nil, ErrNotAMember
		}
		return nil, err
	}

	if !membership.Role.Meets(required) {
		s.log.Debug("authorization denied",
			zap.String("action", action),
			zap.String("org_id", orgID.String()),
			zap.String("user_id", userID.String()),
			zap.String("role", string(membership.Role)),
			zap.String("required_role", string(required)),
		)
		return nil, ErrForbidden
	}

	return &Decision{
		Membership:   membership,
		RequiredRole: required,
	}, nil
}
