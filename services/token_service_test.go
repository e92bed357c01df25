package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_IssueAndValidate(t *testing.T) {
	clock := newFakeClock()
	svc := NewTokenService("k", "homefin-auth", 15*time.Minute, time.Hour, clock.Clock())

	pair, err := svc.IssueTokenPair("u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, 900, pair.ExpiresIn)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "s1", claims.SessionID)

	_, err = svc.ValidateAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	clock.Advance(16 * time.Minute)
	_, err = svc.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")
	_, err = svc.ValidateRefreshToken(pair.RefreshToken)
	assert.NoError(t, err)
}

func TestTokenService_RejectsForeignTokens(t *testing.T) {
	clock := newFakeClock()
	ours := NewTokenService("k1", "homefin-auth", time.Minute, time.Hour, clock.Clock())
	theirs := NewTokenService("k2", "homefin-auth", time.Minute, time.Hour, clock.Clock())
	otherIssuer := NewTokenService("k1", "someone-else", time.Minute, time.Hour, clock.Clock())

	pair, err := theirs.IssueTokenPair("u1", "s1")
	require.NoError(t, err)
	_, err = ours.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	pair, err = otherIssuer.IssueTokenPair("u1", "s1")
	require.NoError(t, err)
	_, err = ours.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ours.ValidateAccessToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
