package notifications

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opencircle/backend/internal/models"
)

// Repository handles notification persistence and recipient-scoped reads.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notifications repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a notification row.
func (r *Repository) Create(ctx context.Context, n *models.Notification) error {
	const q = `INSERT INTO notification (recipient_id, type, title, message, related_entity_id, related_entity_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, is_read, created_date`
	return r.pool.QueryRow(ctx, q, n.RecipientID, n.Type, n.Title, n.Message, n.RelatedEntityID, n.RelatedEntityType).
		Scan(&n.ID, &n.IsRead, &n.CreatedAt)
}

// ListForRecipient returns the newest notifications for an account, bounded
// by limit, optionally unread-only.
func (r *Repository) ListForRecipient(ctx context.Context, recipientID int64, unreadOnly bool, limit int) ([]models.Notification, error) {
	const q = `SELECT id, recipient_id, type, title, message, is_read, related_entity_id, related_entity_type, created_date, read_date
		FROM notification
		WHERE recipient_id = $1 AND ($2 = FALSE OR is_read = FALSE)
		ORDER BY created_date DESC
		LIMIT $3`
	rows, err := r.pool.Query(ctx, q, recipientID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Type, &n.Title, &n.Message, &n.IsRead,
			&n.RelatedEntityID, &n.RelatedEntityType, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// UnreadCount returns the number of unread notifications for an account.
func (r *Repository) UnreadCount(ctx context.Context, recipientID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notification WHERE recipient_id = $1 AND is_read = FALSE`,
		recipientID).Scan(&count)
	return count, err
}

// MarkRead flags one notification read. Returns rows matched so the caller
// can distinguish not-found/not-owned.
func (r *Repository) MarkRead(ctx context.Context, id, recipientID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notification SET is_read = TRUE, read_date = NOW() WHERE id = $1 AND recipient_id = $2 AND is_read = FALSE`,
		id, recipientID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// MarkAllRead flags every unread notification of an account as read.
func (r *Repository) MarkAllRead(ctx context.Context, recipientID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notification SET is_read = TRUE, read_date = NOW() WHERE recipient_id = $1 AND is_read = FALSE`,
		recipientID)
	return err
}

// Delete removes one notification, recipient-scoped. Returns rows matched.
func (r *Repository) Delete(ctx context.Context, id, recipientID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM notification WHERE id = $1 AND recipient_id = $2`, id, recipientID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListApprovedMemberAccountIDs returns the account ids of every approved
// member of an organization, for fan-out.
func (r *Repository) ListApprovedMemberAccountIDs(ctx context.Context, organizationID int64) ([]int64, error) {
	const q = `SELECT u.account_id
		FROM membership m
		INNER JOIN user_profile u ON u.id = m.user_id
		WHERE m.organization_id = $1 AND m.status = 'approved'`
	rows, err := r.pool.Query(ctx, q, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
