package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Ledger persists invitations. Issue and MarkAccepted carry the two
// invariants the lifecycle depends on: one row per (org, email) and
// exactly one winner per token acceptance.
type Ledger interface {
	// Issue writes the invitation, replacing any existing row for the
	// same (org_id, email) pair. A replaced row loses its old token and
	// any accepted_at marker, resetting the offer to pending.
	Issue(ctx context.Context, invitation Invitation) error

	// Lookup fetches an invitation by its unique token.
	Lookup(ctx context.Context, token string) (*Invitation, error)

	// MarkAccepted sets accepted_at for the token if and only if it is
	// not already set. Exactly one concurrent caller succeeds; the rest
	// observe ErrInvitationAlreadyAccepted.
	MarkAccepted(ctx context.Context, token string, now time.Time) error

	// CountOutstanding counts unaccepted, unexpired invitations for an
	// organization.
	CountOutstanding(ctx context.Context, orgID snowflake.ID, now time.Time) (int64, error)

	// ListOutstanding returns the organization's open invitations.
	ListOutstanding(ctx context.Context, orgID snowflake.ID, now time.Time) ([]Invitation, error)

	// Revoke deletes the outstanding invitation for (org_id, email).
	Revoke(ctx context.Context, orgID snowflake.ID, email string) error

	// PurgeExpiredBefore deletes unaccepted invitations whose expiry
	// passed before the cutoff. Rows inside the retention window stay
	// so their tokens keep answering with an expired response instead
	// of vanishing outright.
	PurgeExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
