package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EventBreakdown is the per-event RSVP tally.
type EventBreakdown struct {
	EventID   int64     `json:"event_id"`
	Title     string    `json:"title"`
	EventDate time.Time `json:"event_date"`
	Joined    int       `json:"joined"`
	Rejected  int       `json:"rejected"`
	Pending   int       `json:"pending"`
	Total     int       `json:"total"`
}

// Summary is the organization-wide RSVP tally over a date range.
type Summary struct {
	Events   int `json:"events"`
	Joined   int `json:"joined"`
	Rejected int `json:"rejected"`
	Pending  int `json:"pending"`
	Total    int `json:"total"`
}

// Repository computes RSVP analytics with SQL aggregation.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a reports repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// dateFilter matches events inside [from, to]; nil bounds are open.
const dateFilter = `($2::timestamptz IS NULL OR e.event_date >= $2)
	  AND ($3::timestamptz IS NULL OR e.event_date <= $3)`

// PerEvent returns the RSVP breakdown for each of an organization's events in
// the date range, soonest first.
func (r *Repository) PerEvent(ctx context.Context, organizationID int64, from, to *time.Time) ([]EventBreakdown, error) {
	q := `SELECT e.id, e.title, e.event_date,
			COUNT(*) FILTER (WHERE v.status = 'joined'),
			COUNT(*) FILTER (WHERE v.status = 'rejected'),
			COUNT(*) FILTER (WHERE v.status = 'pending'),
			COUNT(v.id)
		FROM event e
		LEFT JOIN rsvp v ON v.event_id = e.id
		WHERE e.organization_id = $1 AND ` + dateFilter + `
		GROUP BY e.id, e.title, e.event_date
		ORDER BY e.event_date ASC`
	rows, err := r.pool.Query(ctx, q, organizationID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []EventBreakdown
	for rows.Next() {
		var b EventBreakdown
		if err := rows.Scan(&b.EventID, &b.Title, &b.EventDate,
			&b.Joined, &b.Rejected, &b.Pending, &b.Total); err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// OrgSummary returns the aggregate RSVP tally across an organization's events
// in the date range.
func (r *Repository) OrgSummary(ctx context.Context, organizationID int64, from, to *time.Time) (*Summary, error) {
	q := `SELECT COUNT(DISTINCT e.id),
			COUNT(*) FILTER (WHERE v.status = 'joined'),
			COUNT(*) FILTER (WHERE v.status = 'rejected'),
			COUNT(*) FILTER (WHERE v.status = 'pending'),
			COUNT(v.id)
		FROM event e
		LEFT JOIN rsvp v ON v.event_id = e.id
		WHERE e.organization_id = $1 AND ` + dateFilter
	var s Summary
	err := r.pool.QueryRow(ctx, q, organizationID, from, to).
		Scan(&s.Events, &s.Joined, &s.Rejected, &s.Pending, &s.Total)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
