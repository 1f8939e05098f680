package models

import "time"

// UserProfile is the person-facing profile attached to a user-role account.
type UserProfile struct {
	ID             int64     `json:"id"`
	AccountID      int64     `json:"account_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Bio            *string   `json:"bio,omitempty"`
	ProfilePicture *int64    `json:"-"` // resource id
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// OrgProfile is the organization-facing profile attached to an
// organization-role account.
type OrgProfile struct {
	ID          int64     `json:"id"`
	AccountID   int64     `json:"account_id"`
	Name        string    `json:"name"`
	Logo        *int64    `json:"-"` // resource id
	Category    string    `json:"category"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
