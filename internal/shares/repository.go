package shares

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opencircle/backend/internal/models"
)

// Repository handles share persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a shares repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a share. The unique constraint on
// (account_uuid, content_id, content_type) surfaces duplicates as a 23505.
func (r *Repository) Create(ctx context.Context, sh *models.Share) error {
	const q = `INSERT INTO shares (account_uuid, content_id, content_type, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_date`
	return r.pool.QueryRow(ctx, q, sh.AccountUUID, sh.ContentID, sh.ContentType, sh.Comment).
		Scan(&sh.ID, &sh.CreatedAt)
}

// GetByID loads one share row.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Share, error) {
	const q = `SELECT id, account_uuid, content_id, content_type, comment, created_date
		FROM shares WHERE id = $1`
	var sh models.Share
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&sh.ID, &sh.AccountUUID, &sh.ContentID, &sh.ContentType, &sh.Comment, &sh.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

// Delete removes a share, owner-scoped. Returns rows matched.
func (r *Repository) Delete(ctx context.Context, id int64, accountUUID string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM shares WHERE id = $1 AND account_uuid = $2`, id, accountUUID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListByAccount returns an account's shares, newest first.
func (r *Repository) ListByAccount(ctx context.Context, accountUUID string) ([]models.Share, error) {
	const q = `SELECT id, account_uuid, content_id, content_type, comment, created_date
		FROM shares WHERE account_uuid = $1
		ORDER BY created_date DESC`
	rows, err := r.pool.Query(ctx, q, accountUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Share
	for rows.Next() {
		var sh models.Share
		if err := rows.Scan(&sh.ID, &sh.AccountUUID, &sh.ContentID, &sh.ContentType,
			&sh.Comment, &sh.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, sh)
	}
	return list, rows.Err()
}

// CountForContent returns how many times a piece of content was shared.
func (r *Repository) CountForContent(ctx context.Context, contentID int64, contentType models.ShareContentType) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM shares WHERE content_id = $1 AND content_type = $2`,
		contentID, contentType).Scan(&count)
	return count, err
}
