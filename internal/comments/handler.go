package comments

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/opencircle/backend/internal/middleware"
	"github.com/opencircle/backend/pkg/response"
)

// Handler serves the comment endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a comments handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the comment endpoints under the authed group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/comment")
	g.POST("/post/:post_id", h.CreateOnPost)
	g.POST("/event/:event_id", h.CreateOnEvent)
	g.GET("/post/:post_id", h.ListForPost)
	g.GET("/event/:event_id", h.ListForEvent)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

type commentRequest struct {
	Message string `json:"message" binding:"required"`
}

// CreateOnPost comments on a post.
func (h *Handler) CreateOnPost(c *gin.Context) {
	postID, err := strconv.ParseInt(c.Param("post_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid post id")
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "message is required")
		return
	}
	cm, err := h.svc.CreateOnPost(c.Request.Context(), middleware.AccountUUID(c), postID, req.Message)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cm)
}

// CreateOnEvent comments on an event.
func (h *Handler) CreateOnEvent(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("event_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "message is required")
		return
	}
	cm, err := h.svc.CreateOnEvent(c.Request.Context(), middleware.AccountUUID(c), eventID, req.Message)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cm)
}

// ListForPost returns a post's comments.
func (h *Handler) ListForPost(c *gin.Context) {
	postID, err := strconv.ParseInt(c.Param("post_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid post id")
		return
	}
	list, err := h.svc.ListForPost(c.Request.Context(), postID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"comments": list, "count": len(list)})
}

// ListForEvent returns an event's comments.
func (h *Handler) ListForEvent(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("event_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.svc.ListForEvent(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"comments": list, "count": len(list)})
}

// Update rewrites a comment owned by the caller.
func (h *Handler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid comment id")
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "message is required")
		return
	}
	cm, err := h.svc.Update(c.Request.Context(), middleware.AccountUUID(c), id, req.Message)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cm)
}

// Delete removes a comment owned by the caller.
func (h *Handler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid comment id")
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.AccountUUID(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "comment deleted"})
}
