// Package domain contains the invitation ledger model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/planora/internal/rbac"
)

// Invitation is an outstanding offer for an email address to join an
// organization at a given role. At most one row exists per (org_id, email)
// pair; re-inviting replaces the token and expiry in place. Tokens are
// unique across the whole ledger since they are the sole authentication
// factor for acceptance.
type Invitation struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID `gorm:"not null;index;uniqueIndex:ux_org_invite_email,priority:1" json:"org_id"`
	Email      string       `gorm:"type:text;not null;uniqueIndex:ux_org_invite_email,priority:2" json:"email"`
	Role       rbac.Role    `gorm:"type:text;not null" json:"role"`
	Token      string       `gorm:"type:text;not null;uniqueIndex:ux_invitation_token" json:"-"`
	InvitedBy  snowflake.ID `gorm:"column:invited_by;not null;index" json:"invited_by"`
	ExpiresAt  time.Time    `gorm:"not null" json:"expires_at"`
	AcceptedAt *time.Time   `gorm:"column:accepted_at" json:"accepted_at,omitempty"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invitation) TableName() string { return "organization_invitations" }

// Expired reports whether the invitation is past its deadline. The
// boundary is closed on the expired side: exactly at expires_at counts
// as expired.
func (i Invitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// Outstanding reports whether the invitation can still be redeemed.
func (i Invitation) Outstanding(now time.Time) bool {
	return i.AcceptedAt == nil && !i.Expired(now)
}

// Preview is the subset of invitation state shown on the public landing
// page before the invitee commits to accepting.
type Preview struct {
	OrgID       string    `json:"org_id"`
	OrgName     string    `json:"org_name"`
	InviterName string    `json:"inviter_name"`
	Email       string    `json:"email"`
	Role        rbac.Role `json:"role"`
	ExpiresAt   time.Time `json:"expires_at"`
}
