package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/planora/internal/clock"
	invdomain "github.com/smallbiznis/planora/internal/invitation/domain"
	invrepository "github.com/smallbiznis/planora/internal/invitation/repository"
	"github.com/smallbiznis/planora/pkg/db"
	"go.uber.org/zap"
)

func TestSweepExpiredInvitations(t *testing.T) {
	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := conn.AutoMigrate(&invdomain.Invitation{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFakeClock(now)
	ledger := invrepository.NewLedger(conn)
	ctx := context.Background()

	issue := func(email, token string, expiresAt time.Time) {
		t.Helper()
		if err := ledger.Issue(ctx, invdomain.Invitation{
			ID:        node.Generate(),
			OrgID:     node.Generate(),
			Email:     email,
			Role:      "MEMBER",
			Token:     token,
			InvitedBy: node.Generate(),
			ExpiresAt: expiresAt,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			t.Fatalf("issue %s: %v", email, err)
		}
	}

	issue("ancient@example.com", "tok-ancient", now.Add(-40*24*time.Hour))
	issue("recent@example.com", "tok-recent", now.Add(-time.Hour))
	issue("open@example.com", "tok-open", now.Add(24*time.Hour))

	s := New(Params{Log: zap.NewNop(), Ledger: ledger, Clock: clk})
	s.SweepExpiredInvitations(ctx)

	if _, err := ledger.Lookup(ctx, "tok-ancient"); err != invdomain.ErrInvitationNotFound {
		t.Fatalf("ancient invitation: err = %v, want ErrInvitationNotFound", err)
	}

	// Rows inside the retention window survive so their tokens still
	// resolve to an expired invitation.
	if _, err := ledger.Lookup(ctx, "tok-recent"); err != nil {
		t.Fatalf("recent invitation: %v", err)
	}
	if _, err := ledger.Lookup(ctx, "tok-open"); err != nil {
		t.Fatalf("open invitation: %v", err)
	}
}

func TestSweepKeepsAcceptedRows(t *testing.T) {
	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := conn.AutoMigrate(&invdomain.Invitation{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFakeClock(now)
	ledger := invrepository.NewLedger(conn)
	ctx := context.Background()

	if err := ledger.Issue(ctx, invdomain.Invitation{
		ID:        node.Generate(),
		OrgID:     node.Generate(),
		Email:     "joined@example.com",
		Role:      "MEMBER",
		Token:     "tok-joined",
		InvitedBy: node.Generate(),
		ExpiresAt: now.Add(-40 * 24 * time.Hour),
		CreatedAt: now.Add(-41 * 24 * time.Hour),
		UpdatedAt: now.Add(-41 * 24 * time.Hour),
	}); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := ledger.MarkAccepted(ctx, "tok-joined", now.Add(-41*24*time.Hour)); err != nil {
		t.Fatalf("mark accepted: %v", err)
	}

	s := New(Params{Log: zap.NewNop(), Ledger: ledger, Clock: clk})
	s.SweepExpiredInvitations(ctx)

	// Accepted rows are the membership audit trail and never purged.
	if _, err := ledger.Lookup(ctx, "tok-joined"); err != nil {
		t.Fatalf("accepted invitation: %v", err)
	}
}
