package posts

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/opencircle/backend/internal/middleware"
	"github.com/opencircle/backend/pkg/response"
)

// Handler serves the post endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a posts handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the post endpoints under the authed group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/post")
	g.POST("", h.Create)
	g.GET("", h.Feed)
	g.GET("/mine", h.Mine)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

type postRequest struct {
	Description *string `json:"description"`
	Image       *int64  `json:"image"` // resource id from a prior upload
}

// Create authors a post.
func (h *Handler) Create(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if req.Description == nil && req.Image == nil {
		response.BadRequest(c, "a description or an image is required")
		return
	}
	p, err := h.svc.Create(c.Request.Context(), middleware.AccountUUID(c), req.Description, req.Image)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, p)
}

// Update rewrites a post owned by the caller.
func (h *Handler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid post id")
		return
	}
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	p, err := h.svc.Update(c.Request.Context(), middleware.AccountUUID(c), id, req.Description, req.Image)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

// Delete removes a post owned by the caller.
func (h *Handler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid post id")
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.AccountUUID(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "post deleted"})
}

func pagination(c *gin.Context) (limit, offset int, ok bool) {
	limit = 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			response.BadRequest(c, "limit must be between 1 and 100")
			return 0, 0, false
		}
		limit = n
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.BadRequest(c, "offset must be non-negative")
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}

// Feed returns the newest posts across all authors.
func (h *Handler) Feed(c *gin.Context) {
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}
	list, err := h.svc.Feed(c.Request.Context(), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"posts": list, "count": len(list)})
}

// Mine returns the caller's posts.
func (h *Handler) Mine(c *gin.Context) {
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}
	list, err := h.svc.Mine(c.Request.Context(), middleware.AccountUUID(c), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"posts": list, "count": len(list)})
}
