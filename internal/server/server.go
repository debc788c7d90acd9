package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/planora/internal/auth"
	authdomain "github.com/smallbiznis/planora/internal/auth/domain"
	"github.com/smallbiznis/planora/internal/auth/session"
	"github.com/smallbiznis/planora/internal/authorization"
	"github.com/smallbiznis/planora/internal/clock"
	"github.com/smallbiznis/planora/internal/config"
	"github.com/smallbiznis/planora/internal/invitation"
	invdomain "github.com/smallbiznis/planora/internal/invitation/domain"
	"github.com/smallbiznis/planora/internal/observability"
	obslogger "github.com/smallbiznis/planora/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/planora/internal/observability/metrics"
	"github.com/smallbiznis/planora/internal/organization"
	orgdomain "github.com/smallbiznis/planora/internal/organization/domain"
	"github.com/smallbiznis/planora/internal/providers"
	"github.com/smallbiznis/planora/internal/ratelimit"
	"github.com/smallbiznis/planora/internal/rbac"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	clock.Module,
	rbac.Module,
	authorization.Module,
	auth.Module,
	organization.Module,
	invitation.Module,
	providers.Module,
	ratelimit.Module,
	observability.Module,
	fx.Provide(registerGin),
	fx.Provide(NewSnowflakeNode),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// NewSnowflakeNode builds the process-wide ID generator.
func NewSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func NewEngine(httpMetrics *obsmetrics.HTTPMetrics, registry *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware())
	r.Use(httpMetrics.Middleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}

func registerGin(httpMetrics *obsmetrics.HTTPMetrics, registry *prometheus.Registry) *gin.Engine {
	return NewEngine(httpMetrics, registry)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	log             *zap.Logger
	authsvc         authdomain.Service
	users           authdomain.Repository
	sessions        *session.Manager
	genID           *snowflake.Node
	authzSvc        authorization.Service
	organizationSvc orgdomain.Service
	invitationSvc   invdomain.Service
	inviteLimiter   *ratelimit.InviteRedeemLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	Log             *zap.Logger
	Authsvc         authdomain.Service
	Users           authdomain.Repository
	Sessions        *session.Manager
	GenID           *snowflake.Node
	AuthzSvc        authorization.Service
	OrganizationSvc orgdomain.Service
	InvitationSvc   invdomain.Service
	InviteLimiter   *ratelimit.InviteRedeemLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		log:             p.Log.Named("http.server"),
		authsvc:         p.Authsvc,
		users:           p.Users,
		sessions:        p.Sessions,
		genID:           p.GenID,
		authzSvc:        p.AuthzSvc,
		organizationSvc: p.OrganizationSvc,
		invitationSvc:   p.InvitationSvc,
		inviteLimiter:   p.InviteLimiter,
	}

	svc.registerAuthRoutes()
	svc.registerOrgRoutes()
	svc.registerPublicInvitationRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	grp := s.engine.Group("/auth")

	grp.POST("/signup", s.Signup)
	grp.POST("/login", s.Login)
	grp.POST("/logout", s.Logout)
	grp.GET("/me", s.WebAuthRequired(), s.Me)
	grp.POST("/change-password", s.WebAuthRequired(), s.ChangePassword)
}

func (s *Server) registerOrgRoutes() {
	api := s.engine.Group("/api", s.WebAuthRequired())

	orgs := api.Group("/orgs")
	{
		orgs.POST("", s.CreateOrganization)
		orgs.GET("", s.ListUserOrgs)

		org := orgs.Group("/:orgId")
		{
			org.GET("", s.authorizeOrgAction(rbac.ActionOrganizationView), s.GetOrganization)
			org.PATCH("", s.authorizeOrgAction(rbac.ActionOrganizationUpdate), s.UpdateOrganization)
			org.DELETE("", s.authorizeOrgAction(rbac.ActionOrganizationDelete), s.DeleteOrganization)

			org.GET("/members", s.authorizeOrgAction(rbac.ActionMemberView), s.ListMembers)
			org.PATCH("/members/:userId/role", s.authorizeOrgAction(rbac.ActionMemberChangeRole), s.ChangeMemberRole)
			org.PATCH("/members/:userId/status", s.authorizeOrgAction(rbac.ActionMemberSetStatus), s.SetMemberStatus)
			org.DELETE("/members/:userId", s.authorizeOrgAction(rbac.ActionMemberRemove), s.RemoveMember)

			// The invitation service performs its own authorization so the
			// same checks hold for every caller, not just this surface.
			org.POST("/invitations", s.InviteMember)
			org.GET("/invitations", s.ListInvitations)
			org.DELETE("/invitations", s.RevokeInvitation)
		}
	}
}

func (s *Server) registerPublicInvitationRoutes() {
	invitations := s.engine.Group("/invitations", s.InviteRedeemRateLimit())

	invitations.GET("/:token", s.PreviewInvitation)
	invitations.POST("/:token/accept", s.AcceptInvitation)
}
