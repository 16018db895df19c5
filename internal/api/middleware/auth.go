package middleware

import (
	"context"
	"errors"
	"net/http"

	"codearena/internal/common"
	"codearena/internal/common/security"
	"codearena/internal/domain/model"
	"codearena/internal/platform/logger"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const (
	UserIDCtxKey   contextKey = "userID"
	UserRoleCtxKey contextKey = "userRole"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// Verifier looks for the access token in the accessToken cookie first and
// then in the Authorization header. It never rejects a request; that is
// Authenticator's job.
func Verifier(tokens *security.TokenManager) func(http.Handler) http.Handler {
	return jwtauth.Verify(tokens.AccessAuth(), tokenFromAccessCookie, jwtauth.TokenFromHeader)
}

func tokenFromAccessCookie(r *http.Request) string {
	cookie, err := r.Cookie(AccessTokenCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Authenticator rejects requests without a valid access token and stores
// the caller's id and role in the context.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := claimsFromContext(r.Context())
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), UserIDCtxKey, userID)
		ctx = context.WithValue(ctx, UserRoleCtxKey, role)
		ctx = logger.WithUserID(ctx, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := GetUserRoleFromContext(r.Context())
		if !ok || role != model.RoleAdmin {
			common.RespondWithError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type authError string

func (e authError) Error() string { return string(e) }

func claimsFromContext(ctx context.Context) (string, string, error) {
	token, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		if errors.Is(err, jwtauth.ErrNoTokenFound) {
			return "", "", authError("Unauthorized access")
		}
		return "", "", authError("Invalid token")
	}
	if token == nil {
		return "", "", authError("Unauthorized access")
	}
	userID, err := security.GetUserIDFromClaims(claims)
	if err != nil {
		return "", "", authError("Invalid token claims")
	}
	role, err := security.GetUserRoleFromClaims(claims)
	if err != nil {
		return "", "", authError("Invalid token claims")
	}
	return userID, role, nil
}

// OptionalUser returns the caller's id and role on routes that do not
// require authentication.
func OptionalUser(ctx context.Context) (userID, role string, ok bool) {
	if id, found := GetUserIDFromContext(ctx); found {
		role, _ := GetUserRoleFromContext(ctx)
		return id, role, true
	}
	userID, role, err := claimsFromContext(ctx)
	if err != nil {
		return "", "", false
	}
	return userID, role, true
}

// IsAdmin reports whether the caller carries a valid admin token.
func IsAdmin(ctx context.Context) bool {
	_, role, ok := OptionalUser(ctx)
	return ok && role == model.RoleAdmin
}

func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDCtxKey).(string)
	return userID, ok
}

func GetUserRoleFromContext(ctx context.Context) (string, bool) {
	userRole, ok := ctx.Value(UserRoleCtxKey).(string)
	return userRole, ok
}
