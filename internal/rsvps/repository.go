package rsvps

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opencircle/backend/internal/models"
)

// AttendeeView is an RSVP row joined with the attendee's profile, for
// organizer-side listings.
type AttendeeView struct {
	models.RSVP
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	AccountUUID string `json:"account_uuid"`
}

// EventView is an RSVP row joined with its event, for attendee-side listings.
type EventView struct {
	models.RSVP
	EventTitle string    `json:"event_title"`
	EventDate  time.Time `json:"event_date"`
}

// Repository handles RSVP persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an RSVP repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts an RSVP. The unique constraint on (event_id, attendee)
// surfaces duplicates as a 23505.
func (r *Repository) Create(ctx context.Context, v *models.RSVP) error {
	const q = `INSERT INTO rsvp (event_id, attendee, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_date, last_modified_date`
	return r.pool.QueryRow(ctx, q, v.EventID, v.AttendeeID, v.Status).
		Scan(&v.ID, &v.CreatedAt, &v.ModifiedAt)
}

// GetByID loads one RSVP row.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.RSVP, error) {
	const q = `SELECT id, event_id, attendee, status, created_date, last_modified_date
		FROM rsvp WHERE id = $1`
	var v models.RSVP
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&v.ID, &v.EventID, &v.AttendeeID, &v.Status, &v.CreatedAt, &v.ModifiedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetByEventAndAttendee loads the RSVP for one (event, attendee) pair.
func (r *Repository) GetByEventAndAttendee(ctx context.Context, eventID, attendeeID int64) (*models.RSVP, error) {
	const q = `SELECT id, event_id, attendee, status, created_date, last_modified_date
		FROM rsvp WHERE event_id = $1 AND attendee = $2`
	var v models.RSVP
	err := r.pool.QueryRow(ctx, q, eventID, attendeeID).
		Scan(&v.ID, &v.EventID, &v.AttendeeID, &v.Status, &v.CreatedAt, &v.ModifiedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// UpdateStatus moves an RSVP to a new state.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status models.RSVPStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE rsvp SET status = $1, last_modified_date = NOW() WHERE id = $2`,
		status, id)
	return err
}

// Delete removes an RSVP row. Returns rows matched.
func (r *Repository) Delete(ctx context.Context, id int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM rsvp WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListByEvent returns the RSVPs for an event with attendee profiles,
// optionally filtered by status.
func (r *Repository) ListByEvent(ctx context.Context, eventID int64, status models.RSVPStatus) ([]AttendeeView, error) {
	const q = `SELECT v.id, v.event_id, v.attendee, v.status, v.created_date, v.last_modified_date,
			u.first_name, u.last_name, a.uuid
		FROM rsvp v
		INNER JOIN account a ON a.id = v.attendee
		INNER JOIN user_profile u ON u.account_id = a.id
		WHERE v.event_id = $1 AND ($2 = '' OR v.status = $2)
		ORDER BY v.created_date DESC`
	rows, err := r.pool.Query(ctx, q, eventID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []AttendeeView
	for rows.Next() {
		var v AttendeeView
		if err := rows.Scan(&v.ID, &v.EventID, &v.AttendeeID, &v.Status, &v.CreatedAt, &v.ModifiedAt,
			&v.FirstName, &v.LastName, &v.AccountUUID); err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// ListByAttendee returns an account's RSVPs joined with their events.
func (r *Repository) ListByAttendee(ctx context.Context, attendeeID int64, status models.RSVPStatus) ([]EventView, error) {
	const q = `SELECT v.id, v.event_id, v.attendee, v.status, v.created_date, v.last_modified_date,
			e.title, e.event_date
		FROM rsvp v
		INNER JOIN event e ON e.id = v.event_id
		WHERE v.attendee = $1 AND ($2 = '' OR v.status = $2)
		ORDER BY e.event_date ASC`
	rows, err := r.pool.Query(ctx, q, attendeeID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []EventView
	for rows.Next() {
		var v EventView
		if err := rows.Scan(&v.ID, &v.EventID, &v.AttendeeID, &v.Status, &v.CreatedAt, &v.ModifiedAt,
			&v.EventTitle, &v.EventDate); err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}
