package reports

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/opencircle/backend/internal/middleware"
	"github.com/opencircle/backend/internal/models"
	"github.com/opencircle/backend/pkg/database"
	"github.com/opencircle/backend/pkg/response"
)

// Organizations resolves the caller's organization profile. The accounts
// repository satisfies it.
type Organizations interface {
	OrgProfileByAccountUUID(ctx context.Context, accountUUID string) (*models.OrgProfile, error)
}

// Handler serves organization RSVP analytics. Organization accounts only.
type Handler struct {
	repo   *Repository
	orgs   Organizations
	logger *zap.Logger
}

// NewHandler creates a reports handler.
func NewHandler(repo *Repository, orgs Organizations, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, orgs: orgs, logger: logger}
}

// RegisterRoutes mounts the report endpoints under the authed group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/report/rsvp")
	g.GET("/summary", h.Summary)
	g.GET("/events", h.PerEvent)
}

func (h *Handler) callerOrg(c *gin.Context) (*models.OrgProfile, bool) {
	org, err := h.orgs.OrgProfileByAccountUUID(c.Request.Context(), middleware.AccountUUID(c))
	if err != nil {
		if database.IsNoRows(err) {
			response.Forbidden(c, "caller is not an organization account")
		} else {
			h.logger.Error("load organization profile", zap.Error(err))
			response.Internal(c, "failed to load organization")
		}
		return nil, false
	}
	return org, true
}

// dateRange parses optional from/to query params (RFC 3339 or YYYY-MM-DD).
func dateRange(c *gin.Context) (from, to *time.Time, ok bool) {
	parse := func(raw string) (*time.Time, bool) {
		if raw == "" {
			return nil, true
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return &t, true
		}
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			return &t, true
		}
		return nil, false
	}
	from, ok = parse(c.Query("from"))
	if !ok {
		response.BadRequest(c, "from must be RFC 3339 or YYYY-MM-DD")
		return nil, nil, false
	}
	to, ok = parse(c.Query("to"))
	if !ok {
		response.BadRequest(c, "to must be RFC 3339 or YYYY-MM-DD")
		return nil, nil, false
	}
	return from, to, true
}

// Summary returns the aggregate RSVP tally for the caller's organization.
func (h *Handler) Summary(c *gin.Context) {
	org, ok := h.callerOrg(c)
	if !ok {
		return
	}
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	s, err := h.repo.OrgSummary(c.Request.Context(), org.ID, from, to)
	if err != nil {
		h.logger.Error("rsvp summary", zap.Error(err))
		response.Internal(c, "failed to compute summary")
		return
	}
	response.OK(c, s)
}

// PerEvent returns the per-event RSVP breakdown for the caller's organization.
func (h *Handler) PerEvent(c *gin.Context) {
	org, ok := h.callerOrg(c)
	if !ok {
		return
	}
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	list, err := h.repo.PerEvent(c.Request.Context(), org.ID, from, to)
	if err != nil {
		h.logger.Error("rsvp per-event report", zap.Error(err))
		response.Internal(c, "failed to compute report")
		return
	}
	response.OK(c, gin.H{"events": list, "count": len(list)})
}
