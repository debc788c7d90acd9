package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/planora/internal/rbac"
	"gorm.io/gorm"
)

type OrganizationListItem struct {
	ID        snowflake.ID
	Name      string
	Slug      string
	Role      rbac.Role
	CreatedAt time.Time
}

type MemberListItem struct {
	ID          snowflake.ID
	UserID      snowflake.ID
	DisplayName string
	Email       string
	Role        rbac.Role
	Status      string
	JoinedAt    *time.Time
	CreatedAt   time.Time
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrganization(ctx context.Context, org Organization) error
	GetOrganization(ctx context.Context, orgID snowflake.ID) (*Organization, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (*Organization, error)
	GetDefaultOrganization(ctx context.Context) (*Organization, error)
	UpdateOrganization(ctx context.Context, orgID snowflake.ID, fields map[string]any) error
	DeleteOrganization(ctx context.Context, orgID snowflake.ID) error
	ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]OrganizationListItem, error)

	AddMember(ctx context.Context, member Membership) error
	GetMembership(ctx context.Context, orgID, userID snowflake.ID) (*Membership, error)
	GetActiveMembership(ctx context.Context, orgID, userID snowflake.ID) (*Membership, error)
	UpsertOnAccept(ctx context.Context, member Membership) error
	SetRole(ctx context.Context, orgID, userID snowflake.ID, role rbac.Role) error
	SetStatus(ctx context.Context, orgID, userID snowflake.ID, status string) error
	RemoveMember(ctx context.Context, orgID, userID snowflake.ID) error
	ListMembers(ctx context.Context, orgID snowflake.ID) ([]MemberListItem, error)
	CountActiveAdmins(ctx context.Context, orgID snowflake.ID) (int64, error)
}
