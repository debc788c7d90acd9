package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/planora/internal/authorization"
	"github.com/smallbiznis/planora/internal/clock"
	"github.com/smallbiznis/planora/internal/config"
	"github.com/smallbiznis/planora/internal/invitation/domain"
	"github.com/smallbiznis/planora/internal/observability/metrics"
	orgdomain "github.com/smallbiznis/planora/internal/organization/domain"
	"github.com/smallbiznis/planora/internal/providers/email"
	"github.com/smallbiznis/planora/internal/rbac"
	"go.uber.org/fx"
	"go.uber.org/zap"

	authdomain "github.com/smallbiznis/planora/internal/auth/domain"
)

const (
	inviteTokenBytes = 32

	dispatchTimeout = 10 * time.Second
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Cfg     config.Config
	Guard   authorization.Service
	Ledger  domain.Ledger
	Members orgdomain.Repository
	Users   authdomain.Repository
	GenID   *snowflake.Node
	Clock   clock.Clock
	Policy  *config.InvitePolicyHolder
	Email   email.Provider
	Metrics *metrics.InvitationMetrics
}

type service struct {
	log     *zap.Logger
	cfg     config.Config
	guard   authorization.Service
	ledger  domain.Ledger
	members orgdomain.Repository
	users   authdomain.Repository
	genID   *snowflake.Node
	clock   clock.Clock
	policy  *config.InvitePolicyHolder
	email   email.Provider
	metrics *metrics.InvitationMetrics
}

func NewService(p Params) domain.Service {
	return &service{
		log:     p.Log.Named("invitation.service"),
		cfg:     p.Cfg,
		guard:   p.Guard,
		ledger:  p.Ledger,
		members: p.Members,
		users:   p.Users,
		genID:   p.GenID,
		clock:   p.Clock,
		policy:  p.Policy,
		email:   p.Email,
		metrics: p.Metrics,
	}
}

func (s *service) Invite(ctx context.Context, callerUserID, orgID snowflake.ID, rawEmail string, role rbac.Role) (*domain.Invitation, error) {
	address, err := normalizeEmail(rawEmail)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}
	if !role.Valid() {
		return nil, rbac.ErrInvalidRole
	}

	if _, err := s.guard.Authorize(ctx, callerUserID, orgID, rbac.ActionMemberInvite); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	policy := s.policy.Current()
	outstanding, err := s.ledger.CountOutstanding(ctx, orgID, now)
	if err != nil {
		return nil, err
	}
	if outstanding >= int64(policy.MaxOutstandingPerOrg) {
		return nil, domain.ErrInviteLimitReached
	}

	token, err := newInviteToken()
	if err != nil {
		return nil, err
	}

	invitation := domain.Invitation{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Email:     address,
		Role:      role,
		Token:     token,
		InvitedBy: callerUserID,
		ExpiresAt: now.Add(policy.TTL()),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.ledger.Issue(ctx, invitation); err != nil {
		return nil, err
	}

	s.metrics.RecordIssued()
	s.dispatchInvite(invitation)

	return &invitation, nil
}

func (s *service) ValidateForDisplay(ctx context.Context, token string) (*domain.Preview, error) {
	invitation, err := s.validate(ctx, token)
	if err != nil {
		return nil, err
	}

	org, err := s.members.GetOrganization(ctx, invitation.OrgID)
	if err != nil {
		return nil, err
	}

	inviterName := ""
	if inviter, err := s.users.FindByID(ctx, invitation.InvitedBy); err == nil {
		inviterName = inviter.DisplayName
	}

	return &domain.Preview{
		OrgID:       org.ID.String(),
		OrgName:     org.Name,
		InviterName: inviterName,
		Email:       invitation.Email,
		Role:        invitation.Role,
		ExpiresAt:   invitation.ExpiresAt,
	}, nil
}

// Accept redeems the token and provisions the membership. MarkAccepted
// runs before the membership upsert so the ledger is the single point of
// mutual exclusion: of two concurrent acceptances, only the one that
// flips accepted_at proceeds to create the membership.
func (s *service) Accept(ctx context.Context, token string, userID snowflake.ID) (*orgdomain.Membership, error) {
	if userID == 0 {
		return nil, domain.ErrAuthenticationRequired
	}

	invitation, err := s.validate(ctx, token)
	if err != nil {
		s.recordRejection(err)
		return nil, err
	}

	now := s.clock.Now()
	if err := s.ledger.MarkAccepted(ctx, token, now); err != nil {
		s.recordRejection(err)
		return nil, err
	}

	member := orgdomain.Membership{
		ID:        s.genID.Generate(),
		OrgID:     invitation.OrgID,
		UserID:    userID,
		Role:      invitation.Role,
		Status:    orgdomain.StatusActive,
		InvitedBy: &invitation.InvitedBy,
		InvitedAt: &invitation.CreatedAt,
		JoinedAt:  &now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.members.UpsertOnAccept(ctx, member); err != nil {
		return nil, err
	}

	s.metrics.RecordAccepted()
	s.log.Info("invitation accepted",
		zap.String("org_id", invitation.OrgID.String()),
		zap.String("user_id", userID.String()),
		zap.String("role", string(invitation.Role)),
	)

	provisioned, err := s.members.GetActiveMembership(ctx, invitation.OrgID, userID)
	if err != nil {
		return nil, err
	}
	return provisioned, nil
}

func (s *service) ListOutstanding(ctx context.Context, callerUserID, orgID snowflake.ID) ([]domain.OutstandingInvitation, error) {
	if _, err := s.guard.Authorize(ctx, callerUserID, orgID, rbac.ActionMemberView); err != nil {
		return nil, err
	}

	invitations, err := s.ledger.ListOutstanding(ctx, orgID, s.clock.Now())
	if err != nil {
		return nil, err
	}

	items := make([]domain.OutstandingInvitation, 0, len(invitations))
	for _, invitation := range invitations {
		items = append(items, domain.OutstandingInvitation{
			Email:     invitation.Email,
			Role:      invitation.Role,
			InvitedBy: invitation.InvitedBy.String(),
			ExpiresAt: invitation.ExpiresAt,
			CreatedAt: invitation.CreatedAt,
		})
	}

	return items, nil
}

func (s *service) Revoke(ctx context.Context, callerUserID, orgID snowflake.ID, rawEmail string) error {
	address, err := normalizeEmail(rawEmail)
	if err != nil {
		return domain.ErrInvalidEmail
	}

	if _, err := s.guard.Authorize(ctx, callerUserID, orgID, rbac.ActionInvitationRevoke); err != nil {
		return err
	}

	return s.ledger.Revoke(ctx, orgID, address)
}

// validate classifies a token without mutating ledger state.
func (s *service) validate(ctx context.Context, token string) (*domain.Invitation, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domain.ErrInvitationNotFound
	}

	invitation, err := s.ledger.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	if invitation.AcceptedAt != nil {
		return nil, domain.ErrInvitationAlreadyAccepted
	}
	if invitation.Expired(s.clock.Now()) {
		return nil, domain.ErrInvitationExpired
	}
	return invitation, nil
}

// dispatchInvite sends the invitation email without blocking issuance.
// A failed send is logged and dropped; the invitation stays valid and
// can be re-sent by re-inviting.
func (s *service) dispatchInvite(invitation domain.Invitation) {
	org, err := s.members.GetOrganization(context.Background(), invitation.OrgID)
	if err != nil {
		s.log.Warn("invite dispatch skipped, organization lookup failed",
			zap.String("org_id", invitation.OrgID.String()),
			zap.Error(err),
		)
		return
	}

	inviterName := ""
	if inviter, err := s.users.FindByID(context.Background(), invitation.InvitedBy); err == nil {
		inviterName = inviter.DisplayName
	}

	message := email.Invite{
		OrgName:     org.Name,
		InviterName: inviterName,
		Role:        string(invitation.Role),
		AcceptURL:   s.cfg.PublicBaseURL + "/invitations/" + invitation.Token,
		ExpiresAt:   invitation.ExpiresAt,
	}
	to := invitation.Email

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()

		if err := s.email.SendInvite(ctx, to, message); err != nil {
			s.log.Warn("invite email dispatch failed",
				zap.String("org_id", org.ID.String()),
				zap.Error(err),
			)
		}
	}()
}

func (s *service) recordRejection(err error) {
	switch {
	case errors.Is(err, domain.ErrInvitationExpired):
		s.metrics.RecordRejected("expired")
	case errors.Is(err, domain.ErrInvitationAlreadyAccepted):
		s.metrics.RecordRejected("already_accepted")
	case errors.Is(err, domain.ErrInvitationNotFound):
		s.metrics.RecordRejected("not_found")
	}
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}

func newInviteToken() (string, error) {
	buf := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
