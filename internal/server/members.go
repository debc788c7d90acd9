package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/planora/internal/rbac"
)

func (s *Server) ListMembers(c *gin.Context) {
	orgID, err := orgIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	members, err := s.organizationSvc.ListMembers(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

func (s *Server) ChangeMemberRole(c *gin.Context) {
	orgID, err := orgIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	userID, err := userIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req changeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.organizationSvc.ChangeMemberRole(c.Request.Context(), orgID, userID, rbac.Role(req.Role)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) SetMemberStatus(c *gin.Context) {
	orgID, err := orgIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	userID, err := userIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.organizationSvc.SetMemberStatus(c.Request.Context(), orgID, userID, req.Status); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) RemoveMember(c *gin.Context) {
	orgID, err := orgIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	userID, err := userIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.organizationSvc.RemoveMember(c.Request.Context(), orgID, userID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
