package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/planora/internal/rbac"
)

type Service interface {
	Create(ctx context.Context, userID snowflake.ID, req CreateOrganizationRequest) (*OrganizationResponse, error)
	GetByID(ctx context.Context, id string) (*OrganizationResponse, error)
	Update(ctx context.Context, orgID snowflake.ID, req UpdateOrganizationRequest) (*OrganizationResponse, error)
	Delete(ctx context.Context, orgID snowflake.ID) error
	ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]OrganizationListResponseItem, error)

	ListMembers(ctx context.Context, orgID snowflake.ID) ([]MemberResponse, error)
	ChangeMemberRole(ctx context.Context, orgID, userID snowflake.ID, role rbac.Role) error
	SetMemberStatus(ctx context.Context, orgID, userID snowflake.ID, status string) error
	RemoveMember(ctx context.Context, orgID, userID snowflake.ID) error
}

type CreateOrganizationRequest struct {
	Name string `json:"name"`
}

type UpdateOrganizationRequest struct {
	Name string `json:"name"`
}

type OrganizationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

type OrganizationListResponseItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Role      rbac.Role `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type MemberResponse struct {
	UserID      string     `json:"user_id"`
	DisplayName string     `json:"display_name"`
	Email       string     `json:"email"`
	Role        rbac.Role  `json:"role"`
	Status      string     `json:"status"`
	JoinedAt    *time.Time `json:"joined_at,omitempty"`
}
