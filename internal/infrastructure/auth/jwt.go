package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/admarket/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Validation errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingUserID    = errors.New("missing user_id in claims")
	ErrTokenRevoked     = errors.New("token has been revoked")
)

// Claims are the bearer token claims issued by the auth service
type Claims struct {
	jwt.RegisteredClaims
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles,omitempty"`
}

// UserUUID parses the user id claim
func (c *Claims) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

// HasRole reports whether the token carries role
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// IssuedAtTime returns the iat claim or the zero time
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// TokenValidator checks HS256 bearer tokens. Issuing tokens is the auth
// service's job; this side only verifies them.
type TokenValidator struct {
	secret      []byte
	issuer      string
	adminRole   string
	leeway      time.Duration
	revocations RevocationList
}

// ValidatorOption configures a TokenValidator
type ValidatorOption func(*TokenValidator)

// WithRevocationList makes the validator reject revoked tokens
func WithRevocationList(list RevocationList) ValidatorOption {
	return func(v *TokenValidator) { v.revocations = list }
}

// WithLeeway tolerates clock skew when checking exp and nbf
func WithLeeway(d time.Duration) ValidatorOption {
	return func(v *TokenValidator) { v.leeway = d }
}

// NewTokenValidator creates a validator from configuration
func NewTokenValidator(cfg config.JWTConfig, opts ...ValidatorOption) *TokenValidator {
	v := &TokenValidator{
		secret:    []byte(cfg.Secret),
		issuer:    cfg.Issuer,
		adminRole: cfg.AdminRole,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate parses and verifies tokenString
func (v *TokenValidator) Validate(ctx context.Context, tokenString string) (*Claims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, parserOpts...)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return nil, ErrTokenNotYetValid
	case err != nil:
		return nil, ErrInvalidToken
	}

	if claims.UserID == "" {
		return nil, ErrMissingUserID
	}
	if _, err := claims.UserUUID(); err != nil {
		return nil, ErrInvalidToken
	}

	if v.revocations != nil {
		revoked, err := v.revocations.IsRevoked(ctx, claims.ID, claims.UserID, claims.IssuedAtTime())
		if err != nil {
			return nil, fmt.Errorf("check token revocation: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}
	return claims, nil
}

// IsAdmin reports whether claims carry the configured admin role
func (v *TokenValidator) IsAdmin(claims *Claims) bool {
	return claims != nil && claims.HasRole(v.adminRole)
}
