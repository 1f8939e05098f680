package models

import "time"

// Resource is an opaque stored file reference. The directory is the uploader's
// account UUID, which doubles as the ownership check on deletion.
type Resource struct {
	ID        int64     `json:"id"`
	Directory string    `json:"directory"`
	Filename  string    `json:"filename"`
	PublicURL string    `json:"public_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ResourceRef is the joined shape embedded in responses that carry an image
// or logo (post image, profile picture, organization logo).
type ResourceRef struct {
	ID        int64  `json:"id"`
	Directory string `json:"directory"`
	Filename  string `json:"filename"`
}
