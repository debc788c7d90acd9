package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/planora/internal/auth/domain"
	"github.com/smallbiznis/planora/internal/auth/repository"
	"github.com/smallbiznis/planora/pkg/db"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := conn.AutoMigrate(&domain.User{}, &domain.Session{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	repo, sessionRepo := repository.New(conn)
	return New(zap.NewNop(), repo, sessionRepo, node)
}

func TestCreateUserAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, domain.CreateUserRequest{
		Email:       "Alice@Example.com",
		Password:    "hunter2-but-longer",
		DisplayName: "Alice",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.PasswordHash == nil {
		t.Fatal("expected password hash to be set")
	}

	result, err := svc.Login(ctx, domain.LoginRequest{
		Email:    "alice@example.com",
		Password: "hunter2-but-longer",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.RawToken == "" {
		t.Fatal("expected session token")
	}
	if !result.ExpiresAt.After(time.Now()) {
		t.Fatal("expected session expiry in the future")
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, domain.CreateUserRequest{
		Email:    "bob@example.com",
		Password: "a-long-password",
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	_, err := svc.CreateUser(ctx, domain.CreateUserRequest{
		Email:    "bob@example.com",
		Password: "another-password",
	})
	if err != domain.ErrUserExists {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestCreateUserRejectsShortPassword(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateUser(context.Background(), domain.CreateUserRequest{
		Email:    "short@example.com",
		Password: "short",
	})
	if err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, domain.CreateUserRequest{
		Email:    "carol@example.com",
		Password: "correct-password",
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	_, err := svc.Login(ctx, domain.LoginRequest{
		Email:    "carol@example.com",
		Password: "wrong-password",
	})
	if err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever-password",
	})
	if err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateAndLogout(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, domain.CreateUserRequest{
		Email:    "dave@example.com",
		Password: "a-long-password",
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	result, err := svc.Login(ctx, domain.LoginRequest{
		Email:    "dave@example.com",
		Password: "a-long-password",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	session, err := svc.Authenticate(ctx, result.RawToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if session.ID != result.SessionID {
		t.Fatalf("expected session %v, got %v", result.SessionID, session.ID)
	}

	if err := svc.Logout(ctx, result.RawToken); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := svc.Authenticate(ctx, result.RawToken); err != domain.ErrSessionRevoked {
		t.Fatalf("expected ErrSessionRevoked after logout, got %v", err)
	}
}

func TestAuthenticateRejectsGarbageToken(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Authenticate(context.Background(), "no-such-token"); err != domain.ErrInvalidSession {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), ""); err != domain.ErrInvalidSession {
		t.Fatalf("expected ErrInvalidSession for empty token, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, domain.CreateUserRequest{
		Email:    "erin@example.com",
		Password: "original-password",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if err := svc.ChangePassword(ctx, user.ID.String(), "replacement-password"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	if _, err := svc.Login(ctx, domain.LoginRequest{
		Email:    "erin@example.com",
		Password: "original-password",
	}); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected old password to be rejected, got %v", err)
	}
	if _, err := svc.Login(ctx, domain.LoginRequest{
		Email:    "erin@example.com",
		Password: "replacement-password",
	}); err != nil {
		t.Fatalf("expected new password to work, got %v", err)
	}
}
