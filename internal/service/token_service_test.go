package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursework-api/internal/models"
	appErrors "github.com/noah-isme/coursework-api/pkg/errors"
)

func claimsFor(userID string, role models.UserRole, expiresIn time.Duration) *models.JWTClaims {
	return &models.JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "identity",
			Audience:  jwt.ClaimStrings{"coursework"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
}

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "identity", Audience: []string{"coursework"}})
	token, err := svc.Sign(claimsFor("t-1", models.RoleTeacher, time.Hour))
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "t-1", claims.UserID)
	assert.Equal(t, Actor{ID: "t-1", Role: models.RoleTeacher}, ActorFromClaims(claims))
}

func TestTokenServiceRejects(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "identity", Audience: []string{"coursework"}})
	other := NewTokenService(TokenConfig{Secret: "other"})

	expired, err := svc.Sign(claimsFor("t-1", models.RoleTeacher, -time.Minute))
	require.NoError(t, err)
	forged, err := other.Sign(claimsFor("t-1", models.RoleTeacher, time.Hour))
	require.NoError(t, err)
	anonymous, err := svc.Sign(claimsFor("", models.RoleTeacher, time.Hour))
	require.NoError(t, err)

	for name, token := range map[string]string{"expired": expired, "forged": forged, "anonymous": anonymous, "garbage": "abc"} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
		})
	}
}
