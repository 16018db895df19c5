package security

import (
	"context"
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

// TokenManager issues and verifies the access/refresh token pair. Access and
// refresh tokens are signed with different secrets so one cannot stand in
// for the other.
type TokenManager struct {
	access        *jwtauth.JWTAuth
	refresh       *jwtauth.JWTAuth
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewTokenManager(accessSecret []byte, accessExpiry time.Duration, refreshSecret []byte, refreshExpiry time.Duration) *TokenManager {
	return &TokenManager{
		access:        jwtauth.New("HS256", accessSecret, nil),
		refresh:       jwtauth.New("HS256", refreshSecret, nil),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// AccessAuth is used by jwtauth.Verify in the HTTP middleware.
func (m *TokenManager) AccessAuth() *jwtauth.JWTAuth {
	return m.access
}

func (m *TokenManager) AccessExpiry() time.Duration  { return m.accessExpiry }
func (m *TokenManager) RefreshExpiry() time.Duration { return m.refreshExpiry }

func (m *TokenManager) GenerateAccessToken(userID, role string) (string, error) {
	return generate(m.access, m.accessExpiry, userID, role)
}

func (m *TokenManager) GenerateRefreshToken(userID, role string) (string, error) {
	return generate(m.refresh, m.refreshExpiry, userID, role)
}

func generate(auth *jwtauth.JWTAuth, expiry time.Duration, userID, role string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, expiry)
	_, tokenString, err := auth.Encode(claims)
	return tokenString, err
}

// ParseRefreshToken verifies signature and expiry and returns the claims.
func (m *TokenManager) ParseRefreshToken(ctx context.Context, tokenString string) (jwt.MapClaims, error) {
	return parse(ctx, m.refresh, tokenString)
}

// ParseAccessToken is the non-middleware counterpart of jwtauth.Verifier.
func (m *TokenManager) ParseAccessToken(ctx context.Context, tokenString string) (jwt.MapClaims, error) {
	return parse(ctx, m.access, tokenString)
}

func parse(ctx context.Context, auth *jwtauth.JWTAuth, tokenString string) (jwt.MapClaims, error) {
	if tokenString == "" {
		return nil, errors.New("token not found")
	}
	token, err := jwtauth.VerifyToken(auth, tokenString)
	if err != nil {
		return nil, err
	}
	claims, err := token.AsMap(ctx)
	if err != nil {
		return nil, err
	}
	return jwt.MapClaims(claims), nil
}

// Helper functions to extract claims, can be used in middleware or services
func GetUserIDFromClaims(claims jwt.MapClaims) (string, error) {
	id, ok := claims["user_id"].(string)
	if !ok || id == "" {
		return "", errors.New("user_id claim is missing or not a string")
	}
	return id, nil
}

func GetUserRoleFromClaims(claims jwt.MapClaims) (string, error) {
	role, ok := claims["role"].(string)
	if !ok {
		return "", errors.New("role claim is missing or not a string")
	}
	return role, nil
}
