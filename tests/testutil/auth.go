package testutil

import (
	"testing"
	"time"

	"github.com/admarket/backend/internal/infrastructure/auth"
	"github.com/admarket/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// TestJWTConfig is the validator configuration tokens from SignToken pass
var TestJWTConfig = config.JWTConfig{
	Secret:      "test-secret-key-at-least-32-chars",
	Issuer:      "admarket-auth",
	AdminRole:   "admin",
	GatewayRole: "payment_gateway",
}

// SignToken issues a bearer token for userID the way the auth service would
func SignToken(t *testing.T, userID uuid.UUID, roles ...string) string {
	t.Helper()
	now := time.Now()
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    TestJWTConfig.Issuer,
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
		},
		UserID: userID.String(),
		Roles:  roles,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(TestJWTConfig.Secret))
	require.NoError(t, err)
	return token
}
