package models

import "time"

// Post is free-form content authored by an account.
type Post struct {
	ID          int64     `json:"id"`
	AuthorID    int64     `json:"author"` // account id
	Image       *int64    `json:"-"`      // resource id
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_date"`
	ModifiedAt  time.Time `json:"last_modified_date"`
}

// Comment is attached to exactly one of a post or an event.
type Comment struct {
	ID         int64     `json:"id"`
	PostID     *int64    `json:"post_id,omitempty"`
	EventID    *int64    `json:"event_id,omitempty"`
	AuthorID   int64     `json:"author"` // account id
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_date"`
	ModifiedAt time.Time `json:"last_modified_date"`
}

// ShareContentType distinguishes shared content kinds.
type ShareContentType int

const (
	SharePost  ShareContentType = 1
	ShareEvent ShareContentType = 2
)

// Share records an account re-sharing a post or event, optionally with a
// comment. One share per (account, content) pair.
type Share struct {
	ID          int64            `json:"id"`
	AccountUUID string           `json:"account_uuid"`
	ContentID   int64            `json:"content_id"`
	ContentType ShareContentType `json:"content_type"`
	Comment     *string          `json:"comment,omitempty"`
	CreatedAt   time.Time        `json:"created_date"`
}
