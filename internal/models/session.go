package models

import "time"

// Session is a persisted proof of authentication. The token itself is a
// signed JWT carrying the account UUID and validity window; the row exists
// for auditability, multi-device listing, and server-side revocation.
type Session struct {
	ID           int64     `json:"id"`
	AccountUUID  string    `json:"account_uuid"`
	Token        string    `json:"-"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	LastActivity time.Time `json:"last_activity"`
}
