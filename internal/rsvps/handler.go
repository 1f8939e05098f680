package rsvps

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/opencircle/backend/internal/middleware"
	"github.com/opencircle/backend/internal/models"
	"github.com/opencircle/backend/pkg/response"
)

// Handler serves the RSVP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an RSVP handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the RSVP endpoints under the authed group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/rsvp")
	g.POST("/event/:event_id", h.Create)
	g.PUT("/:id/decide", h.Decide)
	g.DELETE("/:id", h.Delete)
	g.GET("/event/:event_id", h.ListForEvent)
	g.GET("/me", h.ListMine)
}

// Create registers the caller's attendance intent for an event.
func (h *Handler) Create(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("event_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	v, err := h.svc.Create(c.Request.Context(), middleware.AccountUUID(c), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, v)
}

type decideRequest struct {
	Status models.RSVPStatus `json:"status" binding:"required"`
}

// Decide moves a pending RSVP to joined or rejected.
func (h *Handler) Decide(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid rsvp id")
		return
	}
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "status is required")
		return
	}
	v, err := h.svc.Decide(c.Request.Context(), middleware.AccountUUID(c), id, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, v)
}

// Delete withdraws an RSVP.
func (h *Handler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid rsvp id")
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.AccountUUID(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "rsvp deleted"})
}

// ListForEvent returns an event's RSVPs for its organizer.
func (h *Handler) ListForEvent(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("event_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	status := models.RSVPStatus(c.Query("status"))
	list, err := h.svc.ListForEvent(c.Request.Context(), middleware.AccountUUID(c), eventID, status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"rsvps": list, "count": len(list)})
}

// ListMine returns the caller's RSVPs with their events.
func (h *Handler) ListMine(c *gin.Context) {
	status := models.RSVPStatus(c.Query("status"))
	list, err := h.svc.ListMine(c.Request.Context(), middleware.AccountUUID(c), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"rsvps": list, "count": len(list)})
}
