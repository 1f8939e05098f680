package models

import "time"

// Role distinguishes the two account kinds.
type Role string

const (
	RoleUser         Role = "user"
	RoleOrganization Role = "organization"
)

// Account is the identity root: credentials plus role. The numeric ID never
// leaves the process; the UUID is the external identity reference.
type Account struct {
	ID               int64     `json:"-"`
	UUID             string    `json:"uuid"`
	Email            string    `json:"email"`
	Password         string    `json:"-"`
	Role             Role      `json:"role"`
	EmailVerified    bool      `json:"email_verified"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	TOTPSecret       *string   `json:"-"`
	BackupCodes      *string   `json:"-"` // JSON array of unused codes
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
