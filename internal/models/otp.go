package models

import "time"

// EmailOTP is a one-time PIN for email verification. Expires after 15 minutes
// and allows a bounded number of verification attempts.
type EmailOTP struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	Code      string    `json:"-"`
	Attempts  int       `json:"attempts"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
