package resources

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opencircle/backend/internal/models"
)

// Repository handles resource row persistence. The bytes live in S3; the row
// is the reference other entities point at.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a resources repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a resource row.
func (r *Repository) Create(ctx context.Context, res *models.Resource) error {
	const q = `INSERT INTO resource (directory, filename, public_url)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, res.Directory, res.Filename, res.PublicURL).
		Scan(&res.ID, &res.CreatedAt)
}

// GetByID loads one resource row.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Resource, error) {
	const q = `SELECT id, directory, filename, public_url, created_at FROM resource WHERE id = $1`
	var res models.Resource
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&res.ID, &res.Directory, &res.Filename, &res.PublicURL, &res.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Delete removes a resource row. Referencing columns are set null by the
// schema. Returns rows matched.
func (r *Repository) Delete(ctx context.Context, id int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM resource WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
