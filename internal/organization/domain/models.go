// Package domain contains persistence models for the organization service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/planora/internal/rbac"
	"gorm.io/datatypes"
)

// Membership status values. Only ACTIVE members can act inside an
// organization.
const (
	StatusPending  = "PENDING"
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

// Organization represents a tenant.
type Organization struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name      string            `gorm:"type:text;not null" json:"name"`
	Slug      string            `gorm:"type:text;not null;uniqueIndex:ux_organizations_slug" json:"slug"`
	IsDefault bool              `gorm:"column:is_default" json:"is_default"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

// Membership represents a user's membership in an organization. At most
// one row exists per (org_id, user_id) pair.
type Membership struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID  `gorm:"not null;index;uniqueIndex:ux_org_user,priority:1" json:"org_id"`
	UserID    snowflake.ID  `gorm:"not null;index;uniqueIndex:ux_org_user,priority:2" json:"user_id"`
	Role      rbac.Role     `gorm:"type:text;not null" json:"role"`
	Status    string        `gorm:"type:text;not null" json:"status"`
	InvitedBy *snowflake.ID `gorm:"column:invited_by" json:"invited_by,omitempty"`
	InvitedAt *time.Time    `gorm:"column:invited_at" json:"invited_at,omitempty"`
	JoinedAt  *time.Time    `gorm:"column:joined_at" json:"joined_at,omitempty"`
	CreatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Membership) TableName() string { return "organization_members" }

// IsActive reports whether this membership grants access.
func (m Membership) IsActive() bool { return m.Status == StatusActive }
