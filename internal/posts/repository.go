package posts

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opencircle/backend/internal/models"
)

// View is a post joined with its author identity and image.
type View struct {
	models.Post
	AuthorUUID string              `json:"author_uuid"`
	AuthorName string              `json:"author_name"`
	Image      *models.ResourceRef `json:"image,omitempty"`
}

// Repository handles post persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a posts repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a post row.
func (r *Repository) Create(ctx context.Context, p *models.Post) error {
	const q = `INSERT INTO post (author, image, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_date, last_modified_date`
	return r.pool.QueryRow(ctx, q, p.AuthorID, p.Image, p.Description).
		Scan(&p.ID, &p.CreatedAt, &p.ModifiedAt)
}

// GetByID loads one post row.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	const q = `SELECT id, author, image, description, created_date, last_modified_date
		FROM post WHERE id = $1`
	var p models.Post
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&p.ID, &p.AuthorID, &p.Image, &p.Description, &p.CreatedAt, &p.ModifiedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const viewQuery = `SELECT p.id, p.author, p.image, p.description, p.created_date, p.last_modified_date,
		a.uuid,
		COALESCE(op.name, up.first_name || ' ' || up.last_name, a.email),
		res.id, res.directory, res.filename
	FROM post p
	INNER JOIN account a ON a.id = p.author
	LEFT JOIN user_profile up ON up.account_id = a.id
	LEFT JOIN org_profile op ON op.account_id = a.id
	LEFT JOIN resource res ON res.id = p.image`

func (r *Repository) queryViews(ctx context.Context, q string, args ...any) ([]View, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []View
	for rows.Next() {
		var v View
		var resID *int64
		var resDirectory, resFilename *string
		if err := rows.Scan(&v.ID, &v.AuthorID, &v.Post.Image, &v.Description, &v.CreatedAt, &v.ModifiedAt,
			&v.AuthorUUID, &v.AuthorName, &resID, &resDirectory, &resFilename); err != nil {
			return nil, err
		}
		if resID != nil && resDirectory != nil && resFilename != nil {
			v.Image = &models.ResourceRef{ID: *resID, Directory: *resDirectory, Filename: *resFilename}
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// ListFeed returns the newest posts across all authors.
func (r *Repository) ListFeed(ctx context.Context, limit, offset int) ([]View, error) {
	return r.queryViews(ctx, viewQuery+`
		ORDER BY p.created_date DESC
		LIMIT $1 OFFSET $2`, limit, offset)
}

// ListByAuthor returns one account's posts, newest first.
func (r *Repository) ListByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]View, error) {
	return r.queryViews(ctx, viewQuery+`
		WHERE p.author = $1
		ORDER BY p.created_date DESC
		LIMIT $2 OFFSET $3`, authorID, limit, offset)
}

// Exists reports whether a post id refers to a row.
func (r *Repository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM post WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// Update rewrites a post's content.
func (r *Repository) Update(ctx context.Context, p *models.Post) error {
	return r.pool.QueryRow(ctx,
		`UPDATE post SET image = $1, description = $2, last_modified_date = NOW()
		 WHERE id = $3
		 RETURNING last_modified_date`,
		p.Image, p.Description, p.ID).
		Scan(&p.ModifiedAt)
}

// Delete removes a post; comments cascade. Returns rows matched.
func (r *Repository) Delete(ctx context.Context, id int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM post WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
