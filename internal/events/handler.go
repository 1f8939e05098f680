package events

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/opencircle/backend/internal/middleware"
	"github.com/opencircle/backend/internal/models"
	"github.com/opencircle/backend/pkg/response"
)

// Handler serves the event endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the event endpoints under the authed group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/event")
	g.POST("", h.Create)
	g.GET("", h.ListUpcoming)
	g.GET("/mine", h.ListMine)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

type addressRequest struct {
	Country             string `json:"country" binding:"required"`
	Province            string `json:"province" binding:"required"`
	City                string `json:"city" binding:"required"`
	Barangay            string `json:"barangay" binding:"required"`
	HouseBuildingNumber string `json:"house_building_number" binding:"required"`
	CountryCode         string `json:"country_code"`
	ProvinceCode        string `json:"province_code"`
	CityCode            string `json:"city_code"`
	BarangayCode        string `json:"barangay_code"`
}

type eventRequest struct {
	Title       string         `json:"title" binding:"required"`
	EventDate   time.Time      `json:"event_date" binding:"required"`
	Description *string        `json:"description"`
	Image       *int64         `json:"image"` // resource id from a prior upload
	AutoAccept  bool           `json:"auto_accept"`
	Address     addressRequest `json:"address" binding:"required"`
}

func (r eventRequest) input() Input {
	return Input{
		Title:       r.Title,
		EventDate:   r.EventDate,
		Description: r.Description,
		Image:       r.Image,
		AutoAccept:  r.AutoAccept,
		Address: models.Address{
			Country:             r.Address.Country,
			Province:            r.Address.Province,
			City:                r.Address.City,
			Barangay:            r.Address.Barangay,
			HouseBuildingNumber: r.Address.HouseBuildingNumber,
			CountryCode:         r.Address.CountryCode,
			ProvinceCode:        r.Address.ProvinceCode,
			CityCode:            r.Address.CityCode,
			BarangayCode:        r.Address.BarangayCode,
		},
	}
}

// Create hosts a new event for the caller's organization.
func (h *Handler) Create(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "title, event_date and address are required")
		return
	}
	ev, err := h.svc.Create(c.Request.Context(), middleware.AccountUUID(c), req.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ev)
}

// Get returns one event with its address, organizer and image.
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	v, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, v)
}

// Update rewrites an event owned by the caller's organization.
func (h *Handler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "title, event_date and address are required")
		return
	}
	ev, err := h.svc.Update(c.Request.Context(), middleware.AccountUUID(c), id, req.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ev)
}

// Delete removes an event owned by the caller's organization.
func (h *Handler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.AccountUUID(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "event deleted"})
}

// ListUpcoming returns future events with the caller's RSVP status attached.
func (h *Handler) ListUpcoming(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			response.BadRequest(c, "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	offset := 0
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.BadRequest(c, "offset must be non-negative")
			return
		}
		offset = n
	}
	list, err := h.svc.ListUpcoming(c.Request.Context(), middleware.AccountUUID(c), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"events": list, "count": len(list)})
}

// ListMine returns the caller organization's events; ?past=true selects
// finished ones.
func (h *Handler) ListMine(c *gin.Context) {
	past := c.Query("past") == "true"
	list, err := h.svc.ListMine(c.Request.Context(), middleware.AccountUUID(c), past)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"events": list, "count": len(list)})
}
