package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/planora/internal/auth/domain"
	authrepository "github.com/smallbiznis/planora/internal/auth/repository"
	authservice "github.com/smallbiznis/planora/internal/auth/service"
	"github.com/smallbiznis/planora/internal/auth/session"
	"github.com/smallbiznis/planora/internal/authorization"
	"github.com/smallbiznis/planora/internal/clock"
	"github.com/smallbiznis/planora/internal/config"
	invdomain "github.com/smallbiznis/planora/internal/invitation/domain"
	invrepository "github.com/smallbiznis/planora/internal/invitation/repository"
	invservice "github.com/smallbiznis/planora/internal/invitation/service"
	"github.com/smallbiznis/planora/internal/observability/metrics"
	orgdomain "github.com/smallbiznis/planora/internal/organization/domain"
	orgrepository "github.com/smallbiznis/planora/internal/organization/repository"
	orgservice "github.com/smallbiznis/planora/internal/organization/service"
	"github.com/smallbiznis/planora/internal/providers/email"
	"github.com/smallbiznis/planora/internal/rbac"
	"github.com/smallbiznis/planora/pkg/db"
	"go.uber.org/zap"
)

type httpEnv struct {
	srv     *Server
	ledger  invdomain.Ledger
	members orgdomain.Repository
	genID   *snowflake.Node
	clock   *clock.FakeClock
}

func newHTTPEnv(t *testing.T) *httpEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := conn.AutoMigrate(
		&authdomain.User{},
		&authdomain.Session{},
		&orgdomain.Organization{},
		&orgdomain.Membership{},
		&invdomain.Invitation{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cfg := config.Config{PublicBaseURL: "http://localhost:8080"}

	registry, reg := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg)
	invMetrics := metrics.NewInvitationMetrics(reg)

	userRepo, sessionRepo := authrepository.New(conn)
	authsvc := authservice.New(zap.NewNop(), userRepo, sessionRepo, node)

	members := orgrepository.NewRepository(conn)
	ledger := invrepository.NewLedger(conn)
	guard := authorization.NewService(zap.NewNop(), rbac.NewCatalog(), members)
	orgsvc := orgservice.NewService(conn, members, node, clk)

	invsvc := invservice.NewService(invservice.Params{
		Log:     zap.NewNop(),
		Cfg:     cfg,
		Guard:   guard,
		Ledger:  ledger,
		Members: members,
		Users:   userRepo,
		GenID:   node,
		Clock:   clk,
		Policy:  config.NewStaticInvitePolicyHolder(config.DefaultInvitePolicy()),
		Email:   email.NoOpProvider{},
		Metrics: invMetrics,
	})

	srv := NewServer(ServerParams{
		Gin:             NewEngine(httpMetrics, registry),
		Cfg:             cfg,
		DB:              conn,
		Log:             zap.NewNop(),
		Authsvc:         authsvc,
		Users:           userRepo,
		Sessions:        session.NewManager(cfg),
		GenID:           node,
		AuthzSvc:        guard,
		OrganizationSvc: orgsvc,
		InvitationSvc:   invsvc,
	})

	return &httpEnv{
		srv:     srv,
		ledger:  ledger,
		members: members,
		genID:   node,
		clock:   clk,
	}
}

func (e *httpEnv) do(t *testing.T, method, path, cookie string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: cookie})
	}
	rec := httptest.NewRecorder()
	e.srv.Engine().ServeHTTP(rec, req)
	return rec
}

// signupAndLogin provisions a user and returns the session cookie value.
func (e *httpEnv) signupAndLogin(t *testing.T, emailAddr string) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/auth/signup", "", gin.H{
		"email":    emailAddr,
		"password": "correct-horse-battery",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup %s: status = %d, body %s", emailAddr, rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodPost, "/auth/login", "", gin.H{
		"email":    emailAddr,
		"password": "correct-horse-battery",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status = %d, body %s", emailAddr, rec.Code, rec.Body.String())
	}
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == session.DefaultCookieName && ck.Value != "" {
			return ck.Value
		}
	}
	t.Fatalf("login %s: no session cookie set", emailAddr)
	return ""
}

func (e *httpEnv) createOrg(t *testing.T, cookie, name string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/orgs", cookie, gin.H{"name": name})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create org: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode org response: %v", err)
	}
	return resp.ID
}

func (e *httpEnv) outstandingToken(t *testing.T, orgID string) string {
	t.Helper()
	id, err := snowflake.ParseString(orgID)
	if err != nil {
		t.Fatalf("parse org id: %v", err)
	}
	invitations, err := e.ledger.ListOutstanding(context.Background(), id, e.clock.Now())
	if err != nil {
		t.Fatalf("list outstanding: %v", err)
	}
	if len(invitations) == 0 {
		t.Fatal("no outstanding invitation")
	}
	return invitations[0].Token
}

func errorType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response %q: %v", rec.Body.String(), err)
	}
	return resp.Error.Type
}

func TestInviteAndAcceptFlow(t *testing.T) {
	e := newHTTPEnv(t)

	adminCookie := e.signupAndLogin(t, "owner@example.com")
	orgID := e.createOrg(t, adminCookie, "Acme")

	rec := e.do(t, http.MethodPost, "/api/orgs/"+orgID+"/invitations", adminCookie, gin.H{
		"email": "new.hire@example.com",
		"role":  "MEMBER",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("invite: status = %d, body %s", rec.Code, rec.Body.String())
	}

	token := e.outstandingToken(t, orgID)

	rec = e.do(t, http.MethodGet, "/invitations/"+token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("preview: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var preview struct {
		OrgName string `json:"org_name"`
		Email   string `json:"email"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &preview); err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if preview.OrgName != "Acme" || preview.Email != "new.hire@example.com" {
		t.Fatalf("preview = %+v", preview)
	}

	inviteeCookie := e.signupAndLogin(t, "new.hire@example.com")

	rec = e.do(t, http.MethodPost, "/invitations/"+token+"/accept", inviteeCookie, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("accept: status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodGet, "/api/orgs", inviteeCookie, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list orgs: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var orgs struct {
		Organizations []struct {
			ID   string `json:"id"`
			Role string `json:"role"`
		} `json:"organizations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &orgs); err != nil {
		t.Fatalf("decode orgs: %v", err)
	}
	if len(orgs.Organizations) != 1 || orgs.Organizations[0].ID != orgID {
		t.Fatalf("organizations = %+v", orgs.Organizations)
	}
	if orgs.Organizations[0].Role != "MEMBER" {
		t.Fatalf("role = %q, want MEMBER", orgs.Organizations[0].Role)
	}

	// A second accept of the same token is a replay.
	rec = e.do(t, http.MethodPost, "/invitations/"+token+"/accept", inviteeCookie, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("replayed accept: status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := errorType(t, rec); got != "invitation_already_accepted" {
		t.Fatalf("error type = %q", got)
	}
}

func TestAcceptRequiresAuthentication(t *testing.T) {
	e := newHTTPEnv(t)

	adminCookie := e.signupAndLogin(t, "owner@example.com")
	orgID := e.createOrg(t, adminCookie, "Acme")

	rec := e.do(t, http.MethodPost, "/api/orgs/"+orgID+"/invitations", adminCookie, gin.H{
		"email": "new.hire@example.com",
		"role":  "MEMBER",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("invite: status = %d", rec.Code)
	}
	token := e.outstandingToken(t, orgID)

	rec = e.do(t, http.MethodPost, "/invitations/"+token+"/accept", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous accept: status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := errorType(t, rec); got != "authentication_required" {
		t.Fatalf("error type = %q, want authentication_required", got)
	}

	// The token must survive the rejection so the invitee can sign in
	// and come back.
	rec = e.do(t, http.MethodGet, "/invitations/"+token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("preview after rejected accept: status = %d", rec.Code)
	}
}

func TestExpiredInvitationRenders410(t *testing.T) {
	e := newHTTPEnv(t)

	adminCookie := e.signupAndLogin(t, "owner@example.com")
	orgID := e.createOrg(t, adminCookie, "Acme")

	rec := e.do(t, http.MethodPost, "/api/orgs/"+orgID+"/invitations", adminCookie, gin.H{
		"email": "late@example.com",
		"role":  "MEMBER",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("invite: status = %d", rec.Code)
	}
	token := e.outstandingToken(t, orgID)

	e.clock.Advance(config.DefaultInvitePolicy().TTL() + time.Hour)

	rec = e.do(t, http.MethodGet, "/invitations/"+token, "", nil)
	if rec.Code != http.StatusGone {
		t.Fatalf("expired preview: status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := errorType(t, rec); got != "invitation_expired" {
		t.Fatalf("error type = %q", got)
	}
}

func TestUnknownTokenRenders404(t *testing.T) {
	e := newHTTPEnv(t)

	rec := e.do(t, http.MethodGet, "/invitations/no-such-token", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := errorType(t, rec); got != "invitation_not_found" {
		t.Fatalf("error type = %q", got)
	}
}

func TestForbiddenResponsesAreGeneric(t *testing.T) {
	e := newHTTPEnv(t)

	adminCookie := e.signupAndLogin(t, "owner@example.com")
	orgID := e.createOrg(t, adminCookie, "Acme")

	outsiderCookie := e.signupAndLogin(t, "outsider@example.com")

	// A real organization the caller is not a member of.
	recMember := e.do(t, http.MethodGet, "/api/orgs/"+orgID, outsiderCookie, nil)
	if recMember.Code != http.StatusForbidden {
		t.Fatalf("non-member: status = %d, body %s", recMember.Code, recMember.Body.String())
	}

	// An organization that does not exist at all.
	ghost := e.genID.Generate().String()
	recGhost := e.do(t, http.MethodGet, "/api/orgs/"+ghost, outsiderCookie, nil)
	if recGhost.Code != http.StatusForbidden {
		t.Fatalf("unknown org: status = %d, body %s", recGhost.Code, recGhost.Body.String())
	}

	// Identical bodies, so responses cannot be used to probe which
	// organizations exist.
	if recMember.Body.String() != recGhost.Body.String() {
		t.Fatalf("bodies differ:\n%s\n%s", recMember.Body.String(), recGhost.Body.String())
	}
}

func TestMemberCannotInvite(t *testing.T) {
	e := newHTTPEnv(t)

	adminCookie := e.signupAndLogin(t, "owner@example.com")
	orgID := e.createOrg(t, adminCookie, "Acme")

	rec := e.do(t, http.MethodPost, "/api/orgs/"+orgID+"/invitations", adminCookie, gin.H{
		"email": "plain@example.com",
		"role":  "MEMBER",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("invite: status = %d", rec.Code)
	}
	token := e.outstandingToken(t, orgID)

	memberCookie := e.signupAndLogin(t, "plain@example.com")
	rec = e.do(t, http.MethodPost, "/invitations/"+token+"/accept", memberCookie, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("accept: status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodPost, "/api/orgs/"+orgID+"/invitations", memberCookie, gin.H{
		"email": "friend@example.com",
		"role":  "MEMBER",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("member invite: status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := errorType(t, rec); got != "forbidden" {
		t.Fatalf("error type = %q", got)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	e := newHTTPEnv(t)

	for _, path := range []string{"/api/orgs", "/auth/me"} {
		rec := e.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d, body %s", path, rec.Code, rec.Body.String())
		}
	}

	rec := e.do(t, http.MethodGet, "/api/orgs", "garbage-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage session: status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestRevokeInvitationEndpoint(t *testing.T) {
	e := newHTTPEnv(t)

	adminCookie := e.signupAndLogin(t, "owner@example.com")
	orgID := e.createOrg(t, adminCookie, "Acme")

	rec := e.do(t, http.MethodPost, "/api/orgs/"+orgID+"/invitations", adminCookie, gin.H{
		"email": "soon.gone@example.com",
		"role":  "MEMBER",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("invite: status = %d", rec.Code)
	}
	token := e.outstandingToken(t, orgID)

	target := fmt.Sprintf("/api/orgs/%s/invitations?email=%s", orgID, "soon.gone@example.com")
	rec = e.do(t, http.MethodDelete, target, adminCookie, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("revoke: status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodGet, "/invitations/"+token, "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("revoked preview: status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestLastAdminDemotionRejected(t *testing.T) {
	e := newHTTPEnv(t)

	adminCookie := e.signupAndLogin(t, "owner@example.com")
	orgID := e.createOrg(t, adminCookie, "Acme")

	rec := e.do(t, http.MethodGet, "/api/orgs/"+orgID+"/members", adminCookie, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list members: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var members struct {
		Members []struct {
			UserID string `json:"user_id"`
		} `json:"members"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &members); err != nil {
		t.Fatalf("decode members: %v", err)
	}
	if len(members.Members) != 1 {
		t.Fatalf("members = %+v", members.Members)
	}

	target := fmt.Sprintf("/api/orgs/%s/members/%s/role", orgID, members.Members[0].UserID)
	rec = e.do(t, http.MethodPatch, target, adminCookie, gin.H{"role": "MEMBER"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("demote last admin: status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := errorType(t, rec); got != "last_admin" {
		t.Fatalf("error type = %q", got)
	}
}
