package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/photostream/backend/internal/domain"
	"github.com/photostream/backend/internal/service"
	"github.com/photostream/backend/pkg/httpx"
	"github.com/photostream/backend/pkg/slogx"
)

type ctxKey int

const ctxKeyUser ctxKey = iota

// UserFromContext returns the authenticated user placed by RequireAuth.
func UserFromContext(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(ctxKeyUser).(domain.User)
	return u, ok
}

// RequireAuth extracts the bearer access token, resolves it to a user and
// injects the user into the request context. Every failure, whatever its
// cause, yields the same 401 so callers learn nothing about which check
// tripped.
func RequireAuth(auth *service.AuthService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeUnauthorized(w)
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			user, err := auth.Authenticate(ctx, raw)
			if err != nil {
				if !errors.Is(err, service.ErrUnauthorized) {
					slogx.FromContext(ctx).Error("authentication failed", "err", err)
				}
				writeUnauthorized(w)
				return
			}

			ctx = context.WithValue(ctx, ctxKeyUser, user)
			ctx = context.WithValue(ctx, httpx.CtxKeyUserID, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles admits only callers whose role is in the allow-list. Must run
// inside RequireAuth. Rejection is 403, not 401: the caller proved who they
// are, they just aren't allowed in here.
func RequireRoles(allowed ...domain.Role) httpx.Middleware {
	want := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		want[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				writeUnauthorized(w)
				return
			}
			if _, ok := want[user.Role]; !ok {
				httpx.WriteError(w, http.StatusForbidden, "operation not permitted")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeUnauthorized emits the uniform credential failure: RFC 6750 challenge
// header plus one fixed message for every authentication failure mode.
func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	httpx.WriteError(w, http.StatusUnauthorized, "could not validate credentials")
}
