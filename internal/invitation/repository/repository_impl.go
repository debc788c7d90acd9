package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/planora/internal/invitation/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) domain.Ledger {
	return &ledger{db: db}
}

// Issue upserts on the (org_id, email) unique pair. Re-inviting rotates
// the token, pushes out the expiry and clears accepted_at, which
// supersedes any previously issued link for that pair.
func (l *ledger) Issue(ctx context.Context, invitation domain.Invitation) error {
	return l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "org_id"}, {Name: "email"}},
		DoUpdates: clause.Assignments(map[string]any{
			"role":        invitation.Role,
			"token":       invitation.Token,
			"invited_by":  invitation.InvitedBy,
			"expires_at":  invitation.ExpiresAt,
			"accepted_at": nil,
			"updated_at":  invitation.UpdatedAt,
		}),
	}).Create(&invitation).Error
}

func (l *ledger) Lookup(ctx context.Context, token string) (*domain.Invitation, error) {
	var invitation domain.Invitation
	err := l.db.WithContext(ctx).Where("token = ?", token).First(&invitation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInvitationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

// MarkAccepted is the sole synchronization point for concurrent
// acceptances. The conditional update succeeds for exactly one caller
// per token; everyone else finds accepted_at already set.
func (l *ledger) MarkAccepted(ctx context.Context, token string, now time.Time) error {
	tx := l.db.WithContext(ctx).Model(&domain.Invitation{}).
		Where("token = ? AND accepted_at IS NULL", token).
		Updates(map[string]any{
			"accepted_at": now,
			"updated_at":  now,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		if _, err := l.Lookup(ctx, token); err != nil {
			return err
		}
		return domain.ErrInvitationAlreadyAccepted
	}
	return nil
}

func (l *ledger) CountOutstanding(ctx context.Context, orgID snowflake.ID, now time.Time) (int64, error) {
	var count int64
	err := l.db.WithContext(ctx).Model(&domain.Invitation{}).
		Where("org_id = ? AND accepted_at IS NULL AND expires_at > ?", orgID, now).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (l *ledger) ListOutstanding(ctx context.Context, orgID snowflake.ID, now time.Time) ([]domain.Invitation, error) {
	var invitations []domain.Invitation
	err := l.db.WithContext(ctx).
		Where("org_id = ? AND accepted_at IS NULL AND expires_at > ?", orgID, now).
		Order("created_at ASC").
		Find(&invitations).Error
	if err != nil {
		return nil, err
	}
	return invitations, nil
}

func (l *ledger) Revoke(ctx context.Context, orgID snowflake.ID, email string) error {
	tx := l.db.WithContext(ctx).
		Where("org_id = ? AND email = ? AND accepted_at IS NULL", orgID, email).
		Delete(&domain.Invitation{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrInvitationNotFound
	}
	return nil
}

func (l *ledger) PurgeExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx := l.db.WithContext(ctx).
		Where("accepted_at IS NULL AND expires_at <= ?", cutoff).
		Delete(&domain.Invitation{})
	if tx.Error != nil {
		return 0, tx.Error
	}
	return tx.RowsAffected, nil
}
