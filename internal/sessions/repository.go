package sessions

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opencircle/backend/internal/models"
)

// Repository handles session row persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a sessions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a session row.
func (r *Repository) Create(ctx context.Context, s *models.Session) error {
	const q = `INSERT INTO session (account_uuid, session_token, ip_address, user_agent, created_at, expires_at, last_activity)
		VALUES ($1, $2, $3, $4, $5, $6, $5)
		RETURNING id`
	return r.pool.QueryRow(ctx, q, s.AccountUUID, s.Token, s.IPAddress, s.UserAgent, s.CreatedAt, s.ExpiresAt).
		Scan(&s.ID)
}

// GetByToken returns the session row for a token.
func (r *Repository) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	const q = `SELECT id, account_uuid, session_token, ip_address, user_agent, created_at, expires_at, last_activity
		FROM session WHERE session_token = $1`
	var s models.Session
	err := r.pool.QueryRow(ctx, q, token).
		Scan(&s.ID, &s.AccountUUID, &s.Token, &s.IPAddress, &s.UserAgent, &s.CreatedAt, &s.ExpiresAt, &s.LastActivity)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// TouchActivity updates last_activity. Expiry is never extended.
func (r *Repository) TouchActivity(ctx context.Context, token string, at time.Time) error {
	const q = `UPDATE session SET last_activity = $2 WHERE session_token = $1`
	_, err := r.pool.Exec(ctx, q, token, at)
	return err
}

// DeleteByToken removes the session row and returns how many rows matched.
func (r *Repository) DeleteByToken(ctx context.Context, token string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM session WHERE session_token = $1`, token)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteForAccount removes every session of an account (account deletion)
// and returns how many rows matched.
func (r *Repository) DeleteForAccount(ctx context.Context, accountUUID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM session WHERE account_uuid = $1`, accountUUID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListForAccount returns active sessions for an account (multi-device view).
func (r *Repository) ListForAccount(ctx context.Context, accountUUID string) ([]models.Session, error) {
	const q = `SELECT id, account_uuid, session_token, ip_address, user_agent, created_at, expires_at, last_activity
		FROM session WHERE account_uuid = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, accountUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Session
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.AccountUUID, &s.Token, &s.IPAddress, &s.UserAgent, &s.CreatedAt, &s.ExpiresAt, &s.LastActivity); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
