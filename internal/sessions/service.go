package sessions

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/opencircle/backend/internal/models"
	"github.com/opencircle/backend/pkg/apperrors"
	"github.com/opencircle/backend/pkg/database"
)

// Store is the persistence surface the service needs. *Repository satisfies it.
type Store interface {
	Create(ctx context.Context, s *models.Session) error
	GetByToken(ctx context.Context, token string) (*models.Session, error)
	TouchActivity(ctx context.Context, token string, at time.Time) error
	DeleteByToken(ctx context.Context, token string) (int64, error)
	DeleteForAccount(ctx context.Context, accountUUID string) (int64, error)
}

// Service implements the session lifecycle: issue, resolve, revoke.
// The persisted row's expiry is authoritative on resolve so that server-side
// revocation always wins over a still-valid signature.
type Service struct {
	tokens *TokenService
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a session service.
func NewService(tokens *TokenService, store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{tokens: tokens, store: store, logger: logger, now: time.Now}
}

// Create mints a token for the account and persists the session record.
func (s *Service) Create(ctx context.Context, accountUUID, clientIP, userAgent string) (*models.Session, error) {
	now := s.now().UTC()
	token, expiresAt, err := s.tokens.Mint(accountUUID, now)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "mint token")
	}
	sess := &models.Session{
		AccountUUID:  accountUUID,
		Token:        token,
		IPAddress:    clientIP,
		UserAgent:    userAgent,
		CreatedAt:    now,
		ExpiresAt:    expiresAt,
		LastActivity: now,
	}
	if err := s.store.Create(ctx, sess); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.ErrConflict
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "create session")
	}
	return sess, nil
}

// Resolve verifies the token and returns the account UUID it was issued to.
// The signature is checked first, then the persisted row: a deleted row means
// the session was revoked, an expired row is deleted lazily and reported as
// expired. Successful resolution bumps last_activity without extending expiry.
func (s *Service) Resolve(ctx context.Context, token string) (string, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return "", err
	}
	sess, err := s.store.GetByToken(ctx, token)
	if err != nil {
		if database.IsNoRows(err) {
			return "", apperrors.ErrNotFound
		}
		return "", apperrors.Wrap(apperrors.ErrPersistence, "load session")
	}
	if sess.ExpiresAt.Before(s.now().UTC()) {
		if _, err := s.store.DeleteByToken(ctx, token); err != nil {
			s.logger.Warn("delete expired session", zap.Error(err))
		}
		return "", apperrors.ErrExpired
	}
	if err := s.store.TouchActivity(ctx, token, s.now().UTC()); err != nil {
		s.logger.Warn("touch session activity", zap.Error(err))
	}
	return claims.AccountUUID, nil
}

// Get returns the persisted session record for a valid, unexpired token.
func (s *Service) Get(ctx context.Context, token string) (*models.Session, error) {
	sess, err := s.store.GetByToken(ctx, token)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "load session")
	}
	if sess.ExpiresAt.Before(s.now().UTC()) {
		if _, err := s.store.DeleteByToken(ctx, token); err != nil {
			s.logger.Warn("delete expired session", zap.Error(err))
		}
		return nil, apperrors.ErrExpired
	}
	if err := s.store.TouchActivity(ctx, token, s.now().UTC()); err != nil {
		s.logger.Warn("touch session activity", zap.Error(err))
	}
	return sess, nil
}

// Revoke deletes the session record. A second revoke of the same token
// reports NotFound; idempotency is deliberately not provided.
func (s *Service) Revoke(ctx context.Context, token string) error {
	n, err := s.store.DeleteByToken(ctx, token)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrPersistence, "delete session")
	}
	if n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// RevokeAll deletes every session of an account and returns the count.
// Revoking an account with no live sessions is not an error.
func (s *Service) RevokeAll(ctx context.Context, accountUUID string) (int64, error) {
	n, err := s.store.DeleteForAccount(ctx, accountUUID)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrPersistence, "delete account sessions")
	}
	return n, nil
}
