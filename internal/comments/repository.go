package comments

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opencircle/backend/internal/models"
)

// View is a comment joined with its author identity.
type View struct {
	models.Comment
	AuthorUUID string `json:"author_uuid"`
	AuthorName string `json:"author_name"`
}

// Repository handles comment persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a comments repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a comment row.
func (r *Repository) Create(ctx context.Context, cm *models.Comment) error {
	const q = `INSERT INTO comment (post_id, event_id, author, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_date, last_modified_date`
	return r.pool.QueryRow(ctx, q, cm.PostID, cm.EventID, cm.AuthorID, cm.Message).
		Scan(&cm.ID, &cm.CreatedAt, &cm.ModifiedAt)
}

// GetByID loads one comment row.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	const q = `SELECT id, post_id, event_id, author, message, created_date, last_modified_date
		FROM comment WHERE id = $1`
	var cm models.Comment
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&cm.ID, &cm.PostID, &cm.EventID, &cm.AuthorID, &cm.Message, &cm.CreatedAt, &cm.ModifiedAt)
	if err != nil {
		return nil, err
	}
	return &cm, nil
}

// Update rewrites a comment's message.
func (r *Repository) Update(ctx context.Context, cm *models.Comment) error {
	return r.pool.QueryRow(ctx,
		`UPDATE comment SET message = $1, last_modified_date = NOW() WHERE id = $2
		 RETURNING last_modified_date`,
		cm.Message, cm.ID).
		Scan(&cm.ModifiedAt)
}

// Delete removes a comment. Returns rows matched.
func (r *Repository) Delete(ctx context.Context, id int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM comment WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const viewQuery = `SELECT c.id, c.post_id, c.event_id, c.author, c.message, c.created_date, c.last_modified_date,
		a.uuid,
		COALESCE(op.name, up.first_name || ' ' || up.last_name, a.email)
	FROM comment c
	INNER JOIN account a ON a.id = c.author
	LEFT JOIN user_profile up ON up.account_id = a.id
	LEFT JOIN org_profile op ON op.account_id = a.id`

func (r *Repository) queryViews(ctx context.Context, q string, args ...any) ([]View, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []View
	for rows.Next() {
		var v View
		if err := rows.Scan(&v.ID, &v.PostID, &v.EventID, &v.AuthorID, &v.Message,
			&v.CreatedAt, &v.ModifiedAt, &v.AuthorUUID, &v.AuthorName); err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// ListByPost returns a post's comments, oldest first.
func (r *Repository) ListByPost(ctx context.Context, postID int64) ([]View, error) {
	return r.queryViews(ctx, viewQuery+`
		WHERE c.post_id = $1
		ORDER BY c.created_date ASC`, postID)
}

// ListByEvent returns an event's comments, oldest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID int64) ([]View, error) {
	return r.queryViews(ctx, viewQuery+`
		WHERE c.event_id = $1
		ORDER BY c.created_date ASC`, eventID)
}
