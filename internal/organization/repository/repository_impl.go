package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/planora/internal/organization/domain"
	"github.com/smallbiznis/planora/internal/rbac"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) CreateOrganization(ctx context.Context, org domain.Organization) error {
	return r.db.WithContext(ctx).Create(&org).Error
}

func (r *repository) GetOrganization(ctx context.Context, orgID snowflake.ID) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).First(&org, "id = ?", orgID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrgNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repository) GetOrganizationBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).First(&org, "slug = ?", slug).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrgNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repository) GetDefaultOrganization(ctx context.Context) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).First(&org, "is_default = ?", true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrgNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repository) UpdateOrganization(ctx context.Context, orgID snowflake.ID, fields map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&domain.Organization{}).Where("id = ?", orgID).Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrOrgNotFound
	}
	return nil
}

func (r *repository) DeleteOrganization(ctx context.Context, orgID snowflake.ID) error {
	tx := r.db.WithContext(ctx).Where("id = ?", orgID).Delete(&domain.Organization{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrOrgNotFound
	}
	return nil
}

func (r *repository) ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]domain.OrganizationListItem, error) {
	var items []domain.OrganizationListItem
	err := r.db.WithContext(ctx).Raw(
		`SELECT o.id, o.name, o.slug, m.role, o.created_at
		 FROM organizations o
		 JOIN organization_members m ON m.org_id = o.id
		 WHERE m.user_id = ? AND m.status = ?
		 ORDER BY o.created_at ASC`,
		userID,
		domain.StatusActive,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}

	return items, nil
}

func (r *repository) AddMember(ctx context.Context, member domain.Membership) error {
	return r.db.WithContext(ctx).Create(&member).Error
}

func (r *repository) GetMembership(ctx context.Context, orgID, userID snowflake.ID) (*domain.Membership, error) {
	var member domain.Membership
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) GetActiveMembership(ctx context.Context, orgID, userID snowflake.ID) (*domain.Membership, error) {
	var member domain.Membership
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND user_id = ? AND status = ?", orgID, userID, domain.StatusActive).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// UpsertOnAccept activates a membership when an invitation is redeemed.
// If a row already exists for (org_id, user_id) it is reactivated with
// the invited role rather than duplicated.
func (r *repository) UpsertOnAccept(ctx context.Context, member domain.Membership) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "org_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"role":       member.Role,
			"status":     member.Status,
			"invited_by": member.InvitedBy,
			"invited_at": member.InvitedAt,
			"joined_at":  member.JoinedAt,
			"updated_at": member.UpdatedAt,
		}),
	}).Create(&member).Error
}

func (r *repository) SetRole(ctx context.Context, orgID, userID snowflake.ID, role rbac.Role) error {
	tx := r.db.WithContext(ctx).Model(&domain.Membership{}).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		Updates(map[string]any{
			"role":       role,
			"updated_at": time.Now().UTC(),
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *repository) SetStatus(ctx context.Context, orgID, userID snowflake.ID, status string) error {
	tx := r.db.WithContext(ctx).Model(&domain.Membership{}).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *repository) RemoveMember(ctx context.Context, orgID, userID snowflake.ID) error {
	tx := r.db.WithContext(ctx).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		Delete(&domain.Membership{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *repository) ListMembers(ctx context.Context, orgID snowflake.ID) ([]domain.MemberListItem, error) {
	var items []domain.MemberListItem
	err := r.db.WithContext(ctx).Raw(
		`SELECT m.id, m.user_id, u.display_name, u.email, m.role, m.status, m.joined_at, m.created_at
		 FROM organization_members m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.org_id = ?
		 ORDER BY m.created_at ASC`,
		orgID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}

	return items, nil
}

func (r *repository) CountActiveAdmins(ctx context.Context, orgID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Membership{}).
		Where("org_id = ? AND role = ? AND status = ?", orgID, rbac.RoleAdmin, domain.StatusActive).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
