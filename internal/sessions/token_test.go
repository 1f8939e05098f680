package sessions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opencircle/backend/pkg/apperrors"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret", 60)
	now := time.Now().UTC()

	token, expiresAt, err := svc.Mint("a1b2c3", now)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.WithinDuration(t, now.Add(time.Hour), expiresAt, time.Second)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "a1b2c3", claims.AccountUUID)
}

func TestTokenExpired(t *testing.T) {
	svc := NewTokenService("test-secret", 60)
	token, _, err := svc.Mint("a1b2c3", time.Now().UTC().Add(-2*time.Hour))
	require.NoError(t, err)

	_, err = svc.Verify(token)
	require.ErrorIs(t, err, apperrors.ErrExpired)
}

func TestTokenWrongSecret(t *testing.T) {
	token, _, err := NewTokenService("secret-a", 60).Mint("a1b2c3", time.Now().UTC())
	require.NoError(t, err)

	_, err = NewTokenService("secret-b", 60).Verify(token)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestTokenGarbage(t *testing.T) {
	_, err := NewTokenService("test-secret", 60).Verify("not-a-token")
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}
