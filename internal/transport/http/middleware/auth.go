package middleware

import (
	"context"
	"net/http"
	"strings"

	"appraise/internal/domain/auth"
)

type ctxKey string

const ctxKeyUser ctxKey = "user"

// SessionChecker verifies that the session referenced by a token is
// still live, so revocation takes effect before token expiry.
type SessionChecker interface {
	SessionValid(ctx context.Context, userID, tokenHash string) (bool, error)
}

// Auth attaches the authenticated user to the request context. Requests
// without valid credentials pass through anonymous; RequirePermission
// rejects them downstream.
func Auth(secret string, sessions SessionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, ok := authenticate(r, secret, sessions); ok {
				r = r.WithContext(context.WithValue(r.Context(), ctxKeyUser, user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authenticate(r *http.Request, secret string, sessions SessionChecker) (auth.UserContext, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
		return auth.UserContext{}, false
	}

	claims, err := auth.ParseToken(secret, token)
	if err != nil {
		return auth.UserContext{}, false
	}

	if sessions != nil && claims.SessionID != "" {
		valid, err := sessions.SessionValid(r.Context(), claims.UserID, auth.HashToken(claims.SessionID))
		if err != nil || !valid {
			return auth.UserContext{}, false
		}
	}

	return auth.UserContext{
		UserID:    claims.UserID,
		TenantID:  claims.TenantID,
		RoleID:    claims.RoleID,
		RoleName:  claims.RoleName,
		SessionID: claims.SessionID,
	}, true
}

func GetUser(ctx context.Context) (auth.UserContext, bool) {
	user, ok := ctx.Value(ctxKeyUser).(auth.UserContext)
	return user, ok
}
