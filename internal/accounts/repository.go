package accounts

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opencircle/backend/internal/models"
)

// Repository handles account, profile and email-OTP persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an accounts repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const accountColumns = `id, uuid, email, password, role, email_verified, two_factor_enabled, totp_secret, backup_codes, created_at, updated_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.UUID, &a.Email, &a.Password, &a.Role, &a.EmailVerified,
		&a.TwoFactorEnabled, &a.TOTPSecret, &a.BackupCodes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateUserAccount inserts the account and its user profile in one
// transaction.
func (r *Repository) CreateUserAccount(ctx context.Context, a *models.Account, p *models.UserProfile) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO account (uuid, email, password, role) VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		a.UUID, a.Email, a.Password, a.Role).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return err
	}
	p.AccountID = a.ID
	err = tx.QueryRow(ctx,
		`INSERT INTO user_profile (account_id, first_name, last_name, bio, profile_picture)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		p.AccountID, p.FirstName, p.LastName, p.Bio, p.ProfilePicture).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CreateOrgAccount inserts the account and its organization profile in one
// transaction.
func (r *Repository) CreateOrgAccount(ctx context.Context, a *models.Account, p *models.OrgProfile) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO account (uuid, email, password, role) VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		a.UUID, a.Email, a.Password, a.Role).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return err
	}
	p.AccountID = a.ID
	err = tx.QueryRow(ctx,
		`INSERT INTO org_profile (account_id, name, logo, category, description)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		p.AccountID, p.Name, p.Logo, p.Category, p.Description).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetByEmailAndRole loads an account by its signin identity.
func (r *Repository) GetByEmailAndRole(ctx context.Context, email string, role models.Role) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM account WHERE email = $1 AND role = $2`, email, role))
}

// GetByUUID loads an account by its external identity.
func (r *Repository) GetByUUID(ctx context.Context, accountUUID string) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM account WHERE uuid = $1`, accountUUID))
}

// AccountIDByUUID maps an account UUID to its internal id.
func (r *Repository) AccountIDByUUID(ctx context.Context, accountUUID string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT id FROM account WHERE uuid = $1`, accountUUID).Scan(&id)
	return id, err
}

// Delete removes an account; profiles, sessions and content cascade.
// Returns rows matched.
func (r *Repository) Delete(ctx context.Context, accountUUID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM account WHERE uuid = $1`, accountUUID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// UserProfileByAccountUUID loads the user profile owned by an account.
func (r *Repository) UserProfileByAccountUUID(ctx context.Context, accountUUID string) (*models.UserProfile, error) {
	const q = `SELECT u.id, u.account_id, u.first_name, u.last_name, u.bio, u.profile_picture, u.created_at, u.updated_at
		FROM user_profile u
		INNER JOIN account a ON a.id = u.account_id
		WHERE a.uuid = $1`
	var p models.UserProfile
	err := r.pool.QueryRow(ctx, q, accountUUID).
		Scan(&p.ID, &p.AccountID, &p.FirstName, &p.LastName, &p.Bio, &p.ProfilePicture, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UserProfileByID loads a user profile by its id.
func (r *Repository) UserProfileByID(ctx context.Context, id int64) (*models.UserProfile, error) {
	const q = `SELECT id, account_id, first_name, last_name, bio, profile_picture, created_at, updated_at
		FROM user_profile WHERE id = $1`
	var p models.UserProfile
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&p.ID, &p.AccountID, &p.FirstName, &p.LastName, &p.Bio, &p.ProfilePicture, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// OrgProfileByAccountUUID loads the organization profile owned by an account.
func (r *Repository) OrgProfileByAccountUUID(ctx context.Context, accountUUID string) (*models.OrgProfile, error) {
	const q = `SELECT o.id, o.account_id, o.name, o.logo, o.category, o.description, o.created_at, o.updated_at
		FROM org_profile o
		INNER JOIN account a ON a.id = o.account_id
		WHERE a.uuid = $1`
	var p models.OrgProfile
	err := r.pool.QueryRow(ctx, q, accountUUID).
		Scan(&p.ID, &p.AccountID, &p.Name, &p.Logo, &p.Category, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// OrgProfileByID loads an organization profile by its id.
func (r *Repository) OrgProfileByID(ctx context.Context, id int64) (*models.OrgProfile, error) {
	const q = `SELECT id, account_id, name, logo, category, description, created_at, updated_at
		FROM org_profile WHERE id = $1`
	var p models.OrgProfile
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&p.ID, &p.AccountID, &p.Name, &p.Logo, &p.Category, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ResourceRefByID loads the joined resource shape for embedding in responses.
func (r *Repository) ResourceRefByID(ctx context.Context, id int64) (*models.ResourceRef, error) {
	var ref models.ResourceRef
	err := r.pool.QueryRow(ctx,
		`SELECT id, directory, filename FROM resource WHERE id = $1`, id).
		Scan(&ref.ID, &ref.Directory, &ref.Filename)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// SetEmailVerified flips the verified flag on an account.
func (r *Repository) SetEmailVerified(ctx context.Context, accountID int64, verified bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE account SET email_verified = $1, updated_at = NOW() WHERE id = $2`,
		verified, accountID)
	return err
}

// SetTwoFactor updates an account's two-factor state in one statement.
func (r *Repository) SetTwoFactor(ctx context.Context, accountID int64, enabled bool, totpSecret, backupCodes *string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE account SET two_factor_enabled = $1, totp_secret = $2, backup_codes = $3, updated_at = NOW() WHERE id = $4`,
		enabled, totpSecret, backupCodes, accountID)
	return err
}

// ReplaceOTP replaces any outstanding OTP for an account with a fresh one.
func (r *Repository) ReplaceOTP(ctx context.Context, otp *models.EmailOTP) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM email_otp WHERE account_id = $1`, otp.AccountID); err != nil {
		return err
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO email_otp (account_id, code, expires_at) VALUES ($1, $2, $3)
		 RETURNING id, attempts, created_at`,
		otp.AccountID, otp.Code, otp.ExpiresAt).
		Scan(&otp.ID, &otp.Attempts, &otp.CreatedAt)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// LatestOTP loads the newest OTP for an account.
func (r *Repository) LatestOTP(ctx context.Context, accountID int64) (*models.EmailOTP, error) {
	const q = `SELECT id, account_id, code, attempts, expires_at, created_at
		FROM email_otp WHERE account_id = $1
		ORDER BY created_at DESC LIMIT 1`
	var otp models.EmailOTP
	err := r.pool.QueryRow(ctx, q, accountID).
		Scan(&otp.ID, &otp.AccountID, &otp.Code, &otp.Attempts, &otp.ExpiresAt, &otp.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

// IncrementOTPAttempts bumps the failed-attempt counter.
func (r *Repository) IncrementOTPAttempts(ctx context.Context, otpID int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE email_otp SET attempts = attempts + 1 WHERE id = $1`, otpID)
	return err
}

// DeleteOTP removes a consumed or invalidated OTP.
func (r *Repository) DeleteOTP(ctx context.Context, otpID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM email_otp WHERE id = $1`, otpID)
	return err
}
