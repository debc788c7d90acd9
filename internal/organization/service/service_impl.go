package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/planora/internal/clock"
	"github.com/smallbiznis/planora/internal/organization/domain"
	"github.com/smallbiznis/planora/internal/rbac"
	"gorm.io/gorm"
)

type service struct {
	db    *gorm.DB
	repo  domain.Repository
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(db *gorm.DB, repo domain.Repository, genID *snowflake.Node, clk clock.Clock) domain.Service {
	return &service{
		db:    db,
		repo:  repo,
		genID: genID,
		clock: clk,
	}
}

func (s *service) Create(ctx context.Context, userID snowflake.ID, req domain.CreateOrganizationRequest) (*domain.OrganizationResponse, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clock.Now()
	orgID := s.genID.Generate()
	org := domain.Organization{
		ID:        orgID,
		Name:      name,
		Slug:      slug.Make(name),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrganization(ctx, org); err != nil {
			return err
		}

		member := domain.Membership{
			ID:        s.genID.Generate(),
			OrgID:     orgID,
			UserID:    userID,
			Role:      rbac.RoleAdmin,
			Status:    domain.StatusActive,
			JoinedAt:  &now,
			CreatedAt: now,
			UpdatedAt: now,
		}

		return repo.AddMember(ctx, member)
	})
	if err != nil {
		return nil, err
	}

	return &domain.OrganizationResponse{
		ID:        orgID.String(),
		Name:      name,
		Slug:      org.Slug,
		CreatedAt: now,
	}, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.OrganizationResponse, error) {
	raw := strings.TrimSpace(id)
	if raw == "" {
		return nil, domain.ErrInvalidOrganization
	}
	orgID, err := snowflake.ParseString(raw)
	if err != nil {
		return nil, domain.ErrInvalidOrganization
	}

	org, err := s.repo.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	return &domain.OrganizationResponse{
		ID:        org.ID.String(),
		Name:      org.Name,
		Slug:      org.Slug,
		CreatedAt: org.CreatedAt,
	}, nil
}

func (s *service) Update(ctx context.Context, orgID snowflake.ID, req domain.UpdateOrganizationRequest) (*domain.OrganizationResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	// Slug stays stable so existing links keep working.
	if err := s.repo.UpdateOrganization(ctx, orgID, map[string]any{
		"name":       name,
		"updated_at": s.clock.Now(),
	}); err != nil {
		return nil, err
	}

	org, err := s.repo.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	return &domain.OrganizationResponse{
		ID:        org.ID.String(),
		Name:      org.Name,
		Slug:      org.Slug,
		CreatedAt: org.CreatedAt,
	}, nil
}

func (s *service) Delete(ctx context.Context, orgID snowflake.ID) error {
	return s.repo.DeleteOrganization(ctx, orgID)
}

func (s *service) ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]domain.OrganizationListResponseItem, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	items, err := s.repo.ListOrganizationsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.OrganizationListResponseItem, 0, len(items))
	for _, item := range items {
		resp = append(resp, domain.OrganizationListResponseItem{
			ID:        item.ID.String(),
			Name:      item.Name,
			Slug:      item.Slug,
			Role:      item.Role,
			CreatedAt: item.CreatedAt,
		})
	}

	return resp, nil
}

func (s *service) ListMembers(ctx context.Context, orgID snowflake.ID) ([]domain.MemberResponse, error) {
	if _, err := s.repo.GetOrganization(ctx, orgID); err != nil {
		return nil, err
	}

	items, err := s.repo.ListMembers(ctx, orgID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.MemberResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, domain.MemberResponse{
			UserID:      item.UserID.String(),
			DisplayName: item.DisplayName,
			Email:       item.Email,
			Role:        item.Role,
			Status:      item.Status,
			JoinedAt:    item.JoinedAt,
		})
	}

	return resp, nil
}

func (s *service) ChangeMemberRole(ctx context.Context, orgID, userID snowflake.ID, role rbac.Role) error {
	if !role.Valid() {
		return domain.ErrInvalidRole
	}

	member, err := s.repo.GetMembership(ctx, orgID, userID)
	if err != nil {
		return err
	}

	if member.Role == rbac.RoleAdmin && role != rbac.RoleAdmin {
		if err := s.ensureNotLastAdmin(ctx, orgID, member); err != nil {
			return err
		}
	}

	return s.repo.SetRole(ctx, orgID, userID, role)
}

func (s *service) SetMemberStatus(ctx context.Context, orgID, userID snowflake.ID, status string) error {
	switch status {
	case domain.StatusActive, domain.StatusInactive:
	default:
		return domain.ErrInvalidStatus
	}

	member, err := s.repo.GetMembership(ctx, orgID, userID)
	if err != nil {
		return err
	}

	if member.Role == rbac.RoleAdmin && status != domain.StatusActive {
		if err := s.ensureNotLastAdmin(ctx, orgID, member); err != nil {
			return err
		}
	}

	return s.repo.SetStatus(ctx, orgID, userID, status)
}

func (s *service) RemoveMember(ctx context.Context, orgID, userID snowflake.ID) error {
	member, err := s.repo.GetMembership(ctx, orgID, userID)
	if err != nil {
		return err
	}

	if member.Role == rbac.RoleAdmin {
		if err := s.ensureNotLastAdmin(ctx, orgID, member); err != nil {
			return err
		}
	}

	return s.repo.RemoveMember(ctx, orgID, userID)
}

// ensureNotLastAdmin rejects changes that would leave an organization
// without any active administrator.
func (s *service) ensureNotLastAdmin(ctx context.Context, orgID snowflake.ID, member *domain.Membership) error {
	if !member.IsActive() {
		return nil
	}

	count, err := s.repo.CountActiveAdmins(ctx, orgID)
	if err != nil {
		return err
	}
	if count <= 1 {
		return domain.ErrLastAdmin
	}
	return nil
}
