package shares

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/opencircle/backend/internal/middleware"
	"github.com/opencircle/backend/internal/models"
	"github.com/opencircle/backend/pkg/response"
)

// Handler serves the share endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a shares handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the share endpoints under the authed group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/share")
	g.POST("", h.Create)
	g.GET("/mine", h.Mine)
	g.GET("/count", h.Count)
	g.DELETE("/:id", h.Delete)
}

type shareRequest struct {
	ContentID   int64                   `json:"content_id" binding:"required"`
	ContentType models.ShareContentType `json:"content_type" binding:"required"`
	Comment     *string                 `json:"comment"`
}

// Create shares a post or event on the caller's profile.
func (h *Handler) Create(c *gin.Context) {
	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "content_id and content_type are required")
		return
	}
	sh, err := h.svc.Create(c.Request.Context(), middleware.AccountUUID(c),
		req.ContentID, req.ContentType, req.Comment)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sh)
}

// Delete removes a share owned by the caller.
func (h *Handler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid share id")
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.AccountUUID(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "share deleted"})
}

// Mine returns the caller's shares.
func (h *Handler) Mine(c *gin.Context) {
	list, err := h.svc.Mine(c.Request.Context(), middleware.AccountUUID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"shares": list, "count": len(list)})
}

// Count returns how many times a piece of content was shared.
func (h *Handler) Count(c *gin.Context) {
	contentID, err := strconv.ParseInt(c.Query("content_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "content_id is required")
		return
	}
	contentType, err := strconv.Atoi(c.Query("content_type"))
	if err != nil {
		response.BadRequest(c, "content_type is required")
		return
	}
	count, err := h.svc.Count(c.Request.Context(), contentID, models.ShareContentType(contentType))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"share_count": count})
}
