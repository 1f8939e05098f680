package memberships

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/opencircle/backend/internal/middleware"
	"github.com/opencircle/backend/internal/models"
	"github.com/opencircle/backend/pkg/response"
)

// Handler serves the membership endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a memberships handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the membership endpoints under the authed group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/membership")
	g.POST("/organization/:org_id", h.Join)
	g.PUT("/:id/decide", h.Decide)
	g.PUT("/organization/:org_id/leave", h.Leave)
	g.DELETE("/organization/:org_id", h.Remove)
	g.GET("/organization/members", h.ListMembers)
	g.GET("/user", h.ListMine)
	g.POST("/status", h.StatusLookup)
}

// Join submits a membership request to an organization.
func (h *Handler) Join(c *gin.Context) {
	orgID, err := strconv.ParseInt(c.Param("org_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}
	m, err := h.svc.Join(c.Request.Context(), middleware.AccountUUID(c), orgID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, m)
}

type decideRequest struct {
	Status models.MembershipStatus `json:"status" binding:"required"`
}

// Decide approves or rejects a pending membership request.
func (h *Handler) Decide(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid membership id")
		return
	}
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "status is required")
		return
	}
	m, err := h.svc.Decide(c.Request.Context(), middleware.AccountUUID(c), id, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, m)
}

// Leave marks the caller's approved membership as left.
func (h *Handler) Leave(c *gin.Context) {
	orgID, err := strconv.ParseInt(c.Param("org_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}
	if err := h.svc.Leave(c.Request.Context(), middleware.AccountUUID(c), orgID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "left organization"})
}

// Remove hard-deletes the caller's membership row.
// Deprecated: retained for old clients; Leave preserves history.
func (h *Handler) Remove(c *gin.Context) {
	orgID, err := strconv.ParseInt(c.Param("org_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}
	if err := h.svc.Remove(c.Request.Context(), middleware.AccountUUID(c), orgID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "membership removed"})
}

type statusLookupRequest struct {
	OrganizationIDs []int64 `json:"organization_ids" binding:"required,min=1"`
}

// StatusLookup returns the caller's membership status for a batch of
// organizations.
func (h *Handler) StatusLookup(c *gin.Context) {
	var req statusLookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "organization_ids is required")
		return
	}
	statuses, err := h.svc.StatusLookup(c.Request.Context(), middleware.AccountUUID(c), req.OrganizationIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"statuses": statuses})
}

// ListMembers returns the caller organization's members.
func (h *Handler) ListMembers(c *gin.Context) {
	status := models.MembershipStatus(c.Query("status"))
	list, err := h.svc.ListMembers(c.Request.Context(), middleware.AccountUUID(c), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"members": list, "count": len(list)})
}

// ListMine returns the organizations the caller user belongs to.
func (h *Handler) ListMine(c *gin.Context) {
	status := models.MembershipStatus(c.Query("status"))
	list, err := h.svc.ListMine(c.Request.Context(), middleware.AccountUUID(c), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"organizations": list, "count": len(list)})
}
