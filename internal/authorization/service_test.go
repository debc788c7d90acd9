package authorization

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	orgdomain "github.com/smallbiznis/planora/internal/organization/domain"
	"github.com/smallbiznis/planora/internal/organization/repository"
	"github.com/smallbiznis/planora/internal/rbac"
	"github.com/smallbiznis/planora/pkg/db"
	"go.uber.org/zap"
)

type fixture struct {
	svc   Service
	repo  orgdomain.Repository
	genID *snowflake.Node
	orgID snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := conn.AutoMigrate(&orgdomain.Organization{}, &orgdomain.Membership{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	repo := repository.NewRepository(conn)
	orgID := node.Generate()
	if err := repo.CreateOrganization(context.Background(), orgdomain.Organization{
		ID:        orgID,
		Name:      "Acme",
		Slug:      "acme",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create org: %v", err)
	}

	return &fixture{
		svc:   NewService(zap.NewNop(), rbac.NewCatalog(), repo),
		repo:  repo,
		genID: node,
		orgID: orgID,
	}
}

func (f *fixture) addMember(t *testing.T, role rbac.Role, status string) snowflake.ID {
	t.Helper()
	userID := f.genID.Generate()
	now := time.Now().UTC()
	if err := f.repo.AddMember(context.Background(), orgdomain.Membership{
		ID:        f.genID.Generate(),
		OrgID:     f.orgID,
		UserID:    userID,
		Role:      role,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("add member: %v", err)
	}
	return userID
}

func TestAdminAllowedEverything(t *testing.T) {
	f := newFixture(t)
	admin := f.addMember(t, rbac.RoleAdmin, orgdomain.StatusActive)

	for _, action := range rbac.NewCatalog().Actions() {
		decision, err := f.svc.Authorize(context.Background(), admin, f.orgID, action)
		if err != nil {
			t.Fatalf("expected admin allowed for %s, got %v", action, err)
		}
		if decision.Membership.Role != rbac.RoleAdmin {
			t.Fatalf("expected decision to carry admin membership")
		}
	}
}

func TestMemberCannotInvite(t *testing.T) {
	f := newFixture(t)
	member := f.addMember(t, rbac.RoleMember, orgdomain.StatusActive)

	if _, err := f.svc.Authorize(context.Background(), member, f.orgID, rbac.ActionMemberInvite); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestManagerCanInviteButNotRemove(t *testing.T) {
	f := newFixture(t)
	manager := f.addMember(t, rbac.RoleManager, orgdomain.StatusActive)
	ctx := context.Background()

	if _, err := f.svc.Authorize(ctx, manager, f.orgID, rbac.ActionMemberInvite); err != nil {
		t.Fatalf("expected manager allowed to invite, got %v", err)
	}
	if _, err := f.svc.Authorize(ctx, manager, f.orgID, rbac.ActionMemberRemove); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden for member.remove, got %v", err)
	}
}

func TestMemberCanUpdateTaskStatus(t *testing.T) {
	f := newFixture(t)
	member := f.addMember(t, rbac.RoleMember, orgdomain.StatusActive)

	if _, err := f.svc.Authorize(context.Background(), member, f.orgID, rbac.ActionTaskUpdateStatus); err != nil {
		t.Fatalf("expected member allowed to update task status, got %v", err)
	}
}

func TestNonMemberDenied(t *testing.T) {
	f := newFixture(t)
	stranger := f.genID.Generate()

	if _, err := f.svc.Authorize(context.Background(), stranger, f.orgID, rbac.ActionTaskView); err != ErrNotAMember {
		t.Fatalf("expected ErrNotAMember, got %v", err)
	}
}

func TestInactiveMemberDenied(t *testing.T) {
	f := newFixture(t)
	inactive := f.addMember(t, rbac.RoleAdmin, orgdomain.StatusInactive)

	if _, err := f.svc.Authorize(context.Background(), inactive, f.orgID, rbac.ActionTaskView); err != ErrNotAMember {
		t.Fatalf("expected inactive admin to be denied, got %v", err)
	}
}

func TestPendingMemberDenied(t *testing.T) {
	f := newFixture(t)
	pending := f.addMember(t, rbac.RoleMember, orgdomain.StatusPending)

	if _, err := f.svc.Authorize(context.Background(), pending, f.orgID, rbac.ActionTaskView); err != ErrNotAMember {
		t.Fatalf("expected pending member to be denied, got %v", err)
	}
}

func TestUnknownOrgDenied(t *testing.T) {
	f := newFixture(t)
	user := f.genID.Generate()

	if _, err := f.svc.Authorize(context.Background(), user, f.genID.Generate(), rbac.ActionTaskView); err != orgdomain.ErrOrgNotFound {
		t.Fatalf("expected ErrOrgNotFound, got %v", err)
	}
}

func TestUnknownActionDenied(t *testing.T) {
	f := newFixture(t)
	admin := f.addMember(t, rbac.RoleAdmin, orgdomain.StatusActive)

	if _, err := f.svc.Authorize(context.Background(), admin, f.orgID, "task.frobnicate"); err != rbac.ErrUnknownAction {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}
