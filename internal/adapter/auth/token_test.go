package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/girrex/suivi/internal/domain"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc, err := NewTokenService("test-secret", "suivi", time.Hour)
	require.NoError(t, err)

	token, err := svc.Issue(domain.Actor{AgentID: "alice", Roles: []string{domain.RoleNationalQSE}})
	require.NoError(t, err)

	actor, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", actor.AgentID)
	assert.True(t, actor.IsNational())
}

func TestTokenService_Rejects(t *testing.T) {
	svc, err := NewTokenService("test-secret", "suivi", time.Hour)
	require.NoError(t, err)
	other, err := NewTokenService("other-secret", "suivi", time.Hour)
	require.NoError(t, err)

	forged, err := other.Issue(domain.Actor{AgentID: "mallory"})
	require.NoError(t, err)
	_, err = svc.Validate(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	past := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return past }
	expired, err := svc.Issue(domain.Actor{AgentID: "alice"})
	require.NoError(t, err)
	svc.now = time.Now
	_, err = svc.Validate(expired)
	assert.ErrorIs(t, err, ErrTokenExpired)

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Type:             "refresh",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "alice", Issuer: "suivi"},
	})
	signed, err := refresh.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = svc.Validate(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokenService("", "suivi", time.Hour)
	assert.Error(t, err)
}
