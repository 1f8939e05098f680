// Package apperrors defines the error taxonomy shared by all components.
// Handlers translate these sentinels to HTTP status codes in pkg/response;
// repositories and services never reference HTTP directly.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means no credential was presented at all.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrInvalidToken means the presented token is malformed or its signature is bad.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpired means the token or session is past its validity window.
	ErrExpired = errors.New("session expired")
	// ErrNotFound covers both absent entities and entities not owned by the
	// caller; the two are deliberately conflated to avoid leaking existence.
	ErrNotFound = errors.New("not found")
	// ErrConflict is a uniqueness violation (duplicate membership, RSVP, email).
	ErrConflict = errors.New("already exists")
	// ErrForbidden means the caller lacks authority over the target.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidStateTransition means a state machine rejected the requested move.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrValidationRejected is a moderation gate rejection.
	ErrValidationRejected = errors.New("content rejected by moderation")
	// ErrPersistence is an unclassified storage failure.
	ErrPersistence = errors.New("persistence error")
)

// Wrap annotates err with a message while keeping it matchable via errors.Is.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// WithDetail returns an error that matches sentinel via errors.Is but carries
// a caller-facing message (e.g. the moderation reason).
func WithDetail(sentinel error, detail string) error {
	return fmt.Errorf("%w: %s", sentinel, detail)
}
