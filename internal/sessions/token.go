package sessions

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/opencircle/backend/pkg/apperrors"
)

// Claims is the signed payload embedded in a session token. The token is
// self-describing: account UUID plus validity window, HS256-signed.
type Claims struct {
	AccountUUID string `json:"account_uuid"`
	jwt.RegisteredClaims
}

// TokenService mints and verifies session tokens.
type TokenService struct {
	secret   []byte
	duration time.Duration
}

// NewTokenService creates a token service with a fixed validity window.
func NewTokenService(secret string, durationMinutes int) *TokenService {
	if durationMinutes <= 0 {
		durationMinutes = 60
	}
	return &TokenService{
		secret:   []byte(secret),
		duration: time.Duration(durationMinutes) * time.Minute,
	}
}

// Duration returns the configured validity window.
func (s *TokenService) Duration() time.Duration { return s.duration }

// Mint creates a signed token for the account, valid from now for the
// configured window.
func (s *TokenService) Mint(accountUUID string, now time.Time) (token string, expiresAt time.Time, err error) {
	expiresAt = now.Add(s.duration)
	claims := Claims{
		AccountUUID: accountUUID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Verify parses the token and validates signature and embedded expiry.
// Returns ErrExpired when only the expiry failed, ErrInvalidToken otherwise.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrExpired
		}
		return nil, apperrors.ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.AccountUUID == "" {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}
