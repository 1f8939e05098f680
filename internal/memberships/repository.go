package memberships

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opencircle/backend/internal/models"
)

// MemberView is a membership row joined with the member's profile, for
// organization-side listings.
type MemberView struct {
	models.Membership
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	AccountUUID string  `json:"account_uuid"`
	Bio         *string `json:"bio,omitempty"`
}

// OrganizationView is a membership row joined with the organization's
// profile, for user-side listings.
type OrganizationView struct {
	models.Membership
	OrganizationName string `json:"organization_name"`
	Category         string `json:"category"`
	AccountUUID      string `json:"account_uuid"`
}

// Repository handles membership persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a memberships repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a pending membership. The unique constraint on
// (organization_id, user_id) surfaces duplicates as a 23505.
func (r *Repository) Create(ctx context.Context, m *models.Membership) error {
	const q = `INSERT INTO membership (organization_id, user_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_date, last_modified_date`
	return r.pool.QueryRow(ctx, q, m.OrganizationID, m.UserID, m.Status).
		Scan(&m.ID, &m.CreatedAt, &m.ModifiedAt)
}

// GetByID loads one membership row.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Membership, error) {
	const q = `SELECT id, organization_id, user_id, status, created_date, last_modified_date
		FROM membership WHERE id = $1`
	var m models.Membership
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Status, &m.CreatedAt, &m.ModifiedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByOrgAndUser loads the membership for one (organization, user) pair.
func (r *Repository) GetByOrgAndUser(ctx context.Context, organizationID, userID int64) (*models.Membership, error) {
	const q = `SELECT id, organization_id, user_id, status, created_date, last_modified_date
		FROM membership WHERE organization_id = $1 AND user_id = $2`
	var m models.Membership
	err := r.pool.QueryRow(ctx, q, organizationID, userID).
		Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Status, &m.CreatedAt, &m.ModifiedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateStatus moves a membership to a new state.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status models.MembershipStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE membership SET status = $1, last_modified_date = NOW() WHERE id = $2`,
		status, id)
	return err
}

// Delete hard-removes a membership row. Returns rows matched.
func (r *Repository) Delete(ctx context.Context, id int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM membership WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListByOrganization returns the members of an organization with their
// profiles, optionally filtered by status.
func (r *Repository) ListByOrganization(ctx context.Context, organizationID int64, status models.MembershipStatus) ([]MemberView, error) {
	const q = `SELECT m.id, m.organization_id, m.user_id, m.status, m.created_date, m.last_modified_date,
			u.first_name, u.last_name, u.bio, a.uuid
		FROM membership m
		INNER JOIN user_profile u ON u.id = m.user_id
		INNER JOIN account a ON a.id = u.account_id
		WHERE m.organization_id = $1 AND ($2 = '' OR m.status = $2)
		ORDER BY m.created_date DESC`
	rows, err := r.pool.Query(ctx, q, organizationID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []MemberView
	for rows.Next() {
		var v MemberView
		if err := rows.Scan(&v.ID, &v.OrganizationID, &v.UserID, &v.Status, &v.CreatedAt, &v.ModifiedAt,
			&v.FirstName, &v.LastName, &v.Bio, &v.AccountUUID); err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// ListByUser returns the organizations a user has memberships with,
// optionally filtered by status.
func (r *Repository) ListByUser(ctx context.Context, userID int64, status models.MembershipStatus) ([]OrganizationView, error) {
	const q = `SELECT m.id, m.organization_id, m.user_id, m.status, m.created_date, m.last_modified_date,
			o.name, o.category, a.uuid
		FROM membership m
		INNER JOIN org_profile o ON o.id = m.organization_id
		INNER JOIN account a ON a.id = o.account_id
		WHERE m.user_id = $1 AND ($2 = '' OR m.status = $2)
		ORDER BY m.created_date DESC`
	rows, err := r.pool.Query(ctx, q, userID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []OrganizationView
	for rows.Next() {
		var v OrganizationView
		if err := rows.Scan(&v.ID, &v.OrganizationID, &v.UserID, &v.Status, &v.CreatedAt, &v.ModifiedAt,
			&v.OrganizationName, &v.Category, &v.AccountUUID); err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// StatusesForUser returns the user's membership status per organization id,
// for batch lookups; organizations with no row are absent from the map.
func (r *Repository) StatusesForUser(ctx context.Context, userID int64, organizationIDs []int64) (map[int64]models.MembershipStatus, error) {
	const q = `SELECT organization_id, status FROM membership
		WHERE user_id = $1 AND organization_id = ANY($2)`
	rows, err := r.pool.Query(ctx, q, userID, organizationIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]models.MembershipStatus, len(organizationIDs))
	for rows.Next() {
		var orgID int64
		var status models.MembershipStatus
		if err := rows.Scan(&orgID, &status); err != nil {
			return nil, err
		}
		out[orgID] = status
	}
	return out, rows.Err()
}
