package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/photostream/backend/internal/cache"
	"github.com/photostream/backend/internal/domain"
	"github.com/photostream/backend/internal/service"
	"github.com/photostream/backend/internal/store"
	"github.com/photostream/backend/pkg/httpx"
	"github.com/photostream/backend/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store
	cache *cache.SessionCache

	AuthService *service.AuthService
	UserService *service.UserService
}

func NewRouter(
	buildVersion string,
	st store.Store,
	sc *cache.SessionCache,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		cache:        sc,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	// Credential endpoints get the strict per-IP limit to slow brute force.
	r.Mux.Handle("POST /api/auth/signup",
		httpx.Chain(&SignupHandler{Users: r.UserService, Auth: r.AuthService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(&LoginHandler{Auth: r.AuthService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Refresh carries its own token; no RequireAuth, limited by IP.
	r.Mux.Handle("GET /api/auth/refresh",
		httpx.Chain(&RefreshHandler{Auth: r.AuthService},
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(&LogoutHandler{Auth: r.AuthService},
			RequireAuth(r.AuthService),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	// Confirmation links arrive from mail clients, unauthenticated.
	r.Mux.Handle("GET /api/auth/confirm/{token}",
		httpx.Chain(&ConfirmHandler{Auth: r.AuthService},
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerUsers() {
	me := &MeHandler{Users: r.UserService}
	r.Mux.Handle("GET /api/me",
		httpx.Chain(http.HandlerFunc(me.HandleGet),
			RequireAuth(r.AuthService),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("PUT /api/me",
		httpx.Chain(http.HandlerFunc(me.HandlePut),
			RequireAuth(r.AuthService),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	users := &UsersHandler{Users: r.UserService}

	// Listing is staff-only; moderation of accounts is admin-only.
	r.Mux.Handle("GET /api/users",
		httpx.Chain(http.HandlerFunc(users.HandleList),
			RequireAuth(r.AuthService),
			RequireRoles(domain.RoleAdmin, domain.RoleModerator),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("PUT /api/users/{email}/ban",
		httpx.Chain(http.HandlerFunc(users.HandleBan),
			RequireAuth(r.AuthService),
			RequireRoles(domain.RoleAdmin),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("PUT /api/users/{email}/unban",
		httpx.Chain(http.HandlerFunc(users.HandleUnban),
			RequireAuth(r.AuthService),
			RequireRoles(domain.RoleAdmin),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.cache),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
