package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	orgdomain "github.com/smallbiznis/planora/internal/organization/domain"
	"github.com/smallbiznis/planora/internal/rbac"
)

type Service interface {
	// Invite issues (or re-issues) an invitation. The caller must hold
	// an active membership in the organization whose role passes the
	// member.invite action.
	Invite(ctx context.Context, callerUserID, orgID snowflake.ID, email string, role rbac.Role) (*Invitation, error)

	// ValidateForDisplay resolves a token into a preview without
	// mutating ledger state. Safe to call repeatedly.
	ValidateForDisplay(ctx context.Context, token string) (*Preview, error)

	// Accept redeems a token for an authenticated user and provisions
	// the membership. Replays and lost races surface
	// ErrInvitationAlreadyAccepted without touching the membership that
	// the winner created.
	Accept(ctx context.Context, token string, userID snowflake.ID) (*orgdomain.Membership, error)

	// ListOutstanding returns the organization's open invitations for
	// the team management view.
	ListOutstanding(ctx context.Context, callerUserID, orgID snowflake.ID) ([]OutstandingInvitation, error)

	// Revoke withdraws an outstanding invitation so its token can no
	// longer be redeemed.
	Revoke(ctx context.Context, callerUserID, orgID snowflake.ID, email string) error
}

type OutstandingInvitation struct {
	Email     string    `json:"email"`
	Role      rbac.Role `json:"role"`
	InvitedBy string    `json:"invited_by"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
