package notifications

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/opencircle/backend/internal/middleware"
	"github.com/opencircle/backend/pkg/response"
)

// AccountResolver maps an account UUID to its internal id.
type AccountResolver interface {
	AccountIDByUUID(ctx context.Context, accountUUID string) (int64, error)
}

// Handler serves the notification inbox endpoints.
type Handler struct {
	repo     *Repository
	accounts AccountResolver
	logger   *zap.Logger
}

// NewHandler creates a notifications handler.
func NewHandler(repo *Repository, accounts AccountResolver, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, accounts: accounts, logger: logger}
}

// RegisterRoutes mounts the notification endpoints under the authed group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/notification")
	g.GET("", h.List)
	g.GET("/count/unread", h.UnreadCount)
	g.PUT("/:id/read", h.MarkRead)
	g.PUT("/read-all", h.MarkAllRead)
	g.DELETE("/:id", h.Delete)
}

func (h *Handler) recipientID(c *gin.Context) (int64, bool) {
	id, err := h.accounts.AccountIDByUUID(c.Request.Context(), middleware.AccountUUID(c))
	if err != nil {
		response.Error(c, err)
		return 0, false
	}
	return id, true
}

// List returns the caller's notifications, newest first.
func (h *Handler) List(c *gin.Context) {
	recipientID, ok := h.recipientID(c)
	if !ok {
		return
	}
	unreadOnly := c.Query("unread_only") == "true"
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			response.BadRequest(c, "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	list, err := h.repo.ListForRecipient(c.Request.Context(), recipientID, unreadOnly, limit)
	if err != nil {
		h.logger.Error("list notifications", zap.Error(err))
		response.Internal(c, "failed to list notifications")
		return
	}
	response.OK(c, gin.H{"notifications": list, "count": len(list)})
}

// UnreadCount returns the caller's unread notification count.
func (h *Handler) UnreadCount(c *gin.Context) {
	recipientID, ok := h.recipientID(c)
	if !ok {
		return
	}
	count, err := h.repo.UnreadCount(c.Request.Context(), recipientID)
	if err != nil {
		h.logger.Error("count unread notifications", zap.Error(err))
		response.Internal(c, "failed to count notifications")
		return
	}
	response.OK(c, gin.H{"unread_count": count})
}

// MarkRead marks one notification as read. Re-reading an already-read or
// foreign notification reports not found.
func (h *Handler) MarkRead(c *gin.Context) {
	recipientID, ok := h.recipientID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid notification id")
		return
	}
	n, err := h.repo.MarkRead(c.Request.Context(), id, recipientID)
	if err != nil {
		h.logger.Error("mark notification read", zap.Error(err))
		response.Internal(c, "failed to update notification")
		return
	}
	if n == 0 {
		response.NotFound(c, "notification not found")
		return
	}
	response.OK(c, gin.H{"message": "notification marked as read"})
}

// MarkAllRead marks every unread notification of the caller as read.
func (h *Handler) MarkAllRead(c *gin.Context) {
	recipientID, ok := h.recipientID(c)
	if !ok {
		return
	}
	if err := h.repo.MarkAllRead(c.Request.Context(), recipientID); err != nil {
		h.logger.Error("mark all notifications read", zap.Error(err))
		response.Internal(c, "failed to update notifications")
		return
	}
	response.OK(c, gin.H{"message": "all notifications marked as read"})
}

// Delete removes one notification owned by the caller.
func (h *Handler) Delete(c *gin.Context) {
	recipientID, ok := h.recipientID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid notification id")
		return
	}
	n, err := h.repo.Delete(c.Request.Context(), id, recipientID)
	if err != nil {
		h.logger.Error("delete notification", zap.Error(err))
		response.Internal(c, "failed to delete notification")
		return
	}
	if n == 0 {
		response.NotFound(c, "notification not found")
		return
	}
	response.OK(c, gin.H{"message": "notification deleted"})
}
