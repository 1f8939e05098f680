package sessions

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/opencircle/backend/internal/middleware"
	"github.com/opencircle/backend/pkg/response"
)

// Handler serves session introspection for the signed-in account.
type Handler struct {
	svc    *Service
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a sessions handler.
func NewHandler(svc *Service, repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, repo: repo, logger: logger}
}

// RegisterRoutes mounts the session endpoints under the authed group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/session")
	g.GET("", h.List)
	g.GET("/current", h.Current)
}

// List returns the caller's active sessions across devices.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.ListForAccount(c.Request.Context(), middleware.AccountUUID(c))
	if err != nil {
		h.logger.Error("list sessions", zap.Error(err))
		response.Internal(c, "failed to list sessions")
		return
	}
	response.OK(c, gin.H{"sessions": list, "count": len(list)})
}

// Current returns the session backing this request.
func (h *Handler) Current(c *gin.Context) {
	token, err := c.Cookie(middleware.SessionCookie)
	if err != nil || token == "" {
		response.Unauthorized(c, "session token missing")
		return
	}
	sess, err := h.svc.Get(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sess)
}
