package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/planora/internal/rbac"
)

type inviteMemberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (s *Server) InviteMember(c *gin.Context) {
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

	var req inviteMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	inv, err := s.invitationSvc.Invite(c.Request.Context(), userID, orgID, req.Email, rbac.Role(req.Role))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"email":      inv.Email,
		"role":       inv.Role,
		"expires_at": inv.ExpiresAt,
	})
}

func (s *Server) ListInvitations(c *gin.Context) {
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

	invitations, err := s.invitationSvc.ListOutstanding(c.Request.Context(), userID, orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invitations": invitations})
}

type revokeInvitationRequest struct {
	Email string `json:"email"`
}

func (s *Server) RevokeInvitation(c *gin.Context) {
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

	// The email can come from the query string so clients can issue a
	// plain DELETE, with a JSON body as the fallback.
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		var req revokeInvitationRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			email = strings.TrimSpace(req.Email)
		}
	}
	if email == "" {
		AbortWithError(c, newValidationError("email", "invalid_email", "email is required"))
		return
	}

	if err := s.invitationSvc.Revoke(c.Request.Context(), userID, orgID, email); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// PreviewInvitation resolves a token for the acceptance page. It is
// public; the invitee usually has no session yet.
func (s *Server) PreviewInvitation(c *gin.Context) {
	preview, err := s.invitationSvc.ValidateForDisplay(c.Request.Context(), c.Param("token"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, preview)
}

func (s *Server) AcceptInvitation(c *gin.Context) {
	// Acceptance needs an authenticated user, but the route stays public
	// so the service can answer with authentication_required and the
	// client can hold the token across the sign-in redirect.
	userID := s.optionalUserID(c)

	member, err := s.invitationSvc.Accept(c.Request.Context(), c.Param("token"), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"org_id": member.OrgID.String(),
		"role":   member.Role,
		"status": member.Status,
	})
}

// optionalUserID resolves the session cookie if one is present. Unlike
// WebAuthRequired it never rejects; anonymous callers get zero.
func (s *Server) optionalUserID(c *gin.Context) snowflake.ID {
	token, ok := s.sessions.ReadToken(c)
	if !ok {
		return 0
	}
	sess, err := s.authsvc.Authenticate(c.Request.Context(), token)
	if err != nil {
		return 0
	}
	return sess.UserID
}
