package httpapi

import (
	"context"
	"net/http"
	"strings"
)

const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"

	RoleAdmin = "admin"
)

type ctxKey string

const (
	ctxUserID ctxKey = "user_id"
	ctxRole   ctxKey = "user_role"
)

// RequireUser enforces the authenticated-principal headers set by the
// gateway and stores them in the request context. The core trusts this id
// as the tenant boundary for every ownership check.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if uid == "" {
			writeError(w, http.StatusBadRequest, "missing required header: "+HeaderUserID)
			return
		}

		ctx := context.WithValue(r.Context(), ctxUserID, uid)
		ctx = context.WithValue(ctx, ctxRole, strings.TrimSpace(r.Header.Get(HeaderUserRole)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin allows only principals with the admin role through.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Role(r.Context()) != RoleAdmin {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func UserID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func Role(ctx context.Context) string {
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

func IsAdmin(ctx context.Context) bool {
	return Role(ctx) == RoleAdmin
}
