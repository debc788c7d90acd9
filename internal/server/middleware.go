package server

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const contextUserIDKey = "auth.user_id"

// WebAuthRequired resolves the session cookie into a user id. Requests
// without a valid session are rejected before any handler runs.
func (s *Server) WebAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		sess, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			s.sessions.Clear(c)
			AbortWithError(c, err)
			return
		}

		c.Set(contextUserIDKey, sess.UserID)
		c.Next()
	}
}

// userIDFromContext returns the authenticated user id set by
// WebAuthRequired, or zero when the request is anonymous.
func userIDFromContext(c *gin.Context) snowflake.ID {
	v, ok := c.Get(contextUserIDKey)
	if !ok {
		return 0
	}
	id, ok := v.(snowflake.ID)
	if !ok {
		return 0
	}
	return id
}

func orgIDParam(c *gin.Context) (snowflake.ID, error) {
	raw := c.Param("orgId")
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, newValidationError("orgId", "invalid_org_id", "organization id must be a valid id")
	}
	return id, nil
}

func userIDParam(c *gin.Context) (snowflake.ID, error) {
	raw := c.Param("userId")
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, newValidationError("userId", "invalid_user_id", "user id must be a valid id")
	}
	return id, nil
}

// authorizeOrgAction gates a route on the caller's role in the
// organization named by the :orgId path parameter.
func (s *Server) authorizeOrgAction(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := userIDFromContext(c)
		if userID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		orgID, err := orgIDParam(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		if _, err := s.authzSvc.Authorize(c.Request.Context(), userID, orgID, action); err != nil {
			AbortWithError(c, err)
			return
		}

		c.Next()
	}
}

// InviteRedeemRateLimit throttles the public invitation endpoints per
// client IP. A no-op when the limiter is not configured.
func (s *Server) InviteRedeemRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.inviteLimiter.Enabled() {
			c.Next()
			return
		}

		allowed, err := s.inviteLimiter.AllowIP(c.Request.Context(), c.ClientIP())
		if err != nil {
			// Fail open. A redis outage should not lock invitees out.
			s.log.Warn("invite redeem rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			AbortWithError(c, ErrTooManyRequests)
			return
		}

		c.Next()
	}
}
