package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/photostream/backend/internal/cache"
	httpapi "github.com/photostream/backend/internal/http"
	"github.com/photostream/backend/internal/service"
	"github.com/photostream/backend/internal/store/drivers/sqlite"
	"github.com/photostream/backend/pkg/tokenx"
)

type fixture struct {
	router *httpapi.Router
	auth   *service.AuthService

	nextIP int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewStore("file:" + filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sc := cache.NewFromClient(client)

	codec, err := tokenx.NewCodec("HS256", "router-test-secret")
	require.NoError(t, err)

	auth := &service.AuthService{
		Codec:      codec,
		Store:      st,
		Cache:      sc,
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		EmailTTL:   7 * 24 * time.Hour,
		CacheTTL:   900 * time.Second,
	}
	users := &service.UserService{Store: st, Cache: sc}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := httpapi.NewRouter("test", st, sc, logger)
	router.AuthService = auth
	router.UserService = users
	router.ApplyRoutes()

	return &fixture{router: router, auth: auth}
}

// do issues a request against the router. Each fixture rotates through
// distinct client IPs so per-IP rate limits never trip across subtests.
func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	f.nextIP++
	req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", f.nextIP%250+1))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

type tokenPairBody struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (f *fixture) signup(t *testing.T, email, password string) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":     email,
		"full_name": "Test User",
		"password":  password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (f *fixture) login(t *testing.T, email, password string) tokenPairBody {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[tokenPairBody](t, rec)
}

func TestAuthFlow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.signup(t, "a@x.com", "secret123")

	t.Run("duplicate signup conflicts", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
			"email":    "a@x.com",
			"password": "other-pass",
		})
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("wrong password is a uniform 401", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "a@x.com",
			"password": "wrong-pass",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
		require.JSONEq(t, `{"detail": "could not validate credentials"}`, rec.Body.String())
	})

	pair := f.login(t, "a@x.com", "secret123")
	require.Equal(t, "bearer", pair.TokenType)
	require.Equal(t, int64(1800), pair.ExpiresIn)

	t.Run("access token reaches the profile", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/me", pair.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode[map[string]any](t, rec)
		require.Equal(t, "a@x.com", body["email"])
		_, leaked := body["password_hash"]
		require.False(t, leaked)
	})

	t.Run("refresh token is rejected on protected endpoints", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/me", pair.RefreshToken, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing and malformed bearer rejected", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/me", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = f.do(t, http.MethodGet, "/api/me", "not-a-token", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("refresh rotates and kills the replayed token", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/auth/refresh", pair.RefreshToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		rotated := decode[tokenPairBody](t, rec)
		require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

		// Replay of the old token invalidates the whole session.
		rec = f.do(t, http.MethodGet, "/api/auth/refresh", pair.RefreshToken, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = f.do(t, http.MethodGet, "/api/auth/refresh", rotated.RefreshToken, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("logout ends the refresh session", func(t *testing.T) {
		pair := f.login(t, "a@x.com", "secret123")

		rec := f.do(t, http.MethodPost, "/api/auth/logout", pair.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(t, http.MethodGet, "/api/auth/refresh", pair.RefreshToken, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSignupValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	t.Run("invalid email", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
			"email":    "not-an-email",
			"password": "secret123",
		})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("short password", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
			"email":    "a@x.com",
			"password": "short",
		})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("email is normalized to lower case", func(t *testing.T) {
		f.signup(t, "MiXeD@X.com", "secret123")
		f.login(t, "mixed@x.com", "secret123")
	})
}

func TestEmailConfirmation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":    "a@x.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode[map[string]any](t, rec)
	token, _ := body["confirmation_token"].(string)
	require.NotEmpty(t, token)

	rec = f.do(t, http.MethodGet, "/api/auth/confirm/"+token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Confirming again is fine.
	rec = f.do(t, http.MethodGet, "/api/auth/confirm/"+token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// An access token is not a confirmation token.
	pair := f.login(t, "a@x.com", "secret123")
	rec = f.do(t, http.MethodGet, "/api/auth/confirm/"+pair.AccessToken, "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/me", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]any](t, rec)
	require.Equal(t, true, me["email_confirmed"])
}

func TestProfileUpdate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.signup(t, "a@x.com", "secret123")
	pair := f.login(t, "a@x.com", "secret123")

	rec := f.do(t, http.MethodPut, "/api/me", pair.AccessToken, map[string]string{
		"full_name": "New Name",
		"password":  "newpass456",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	require.Equal(t, "New Name", body["full_name"])

	// Old password no longer works, new one does.
	rec = f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "a@x.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	f.login(t, "a@x.com", "newpass456")

	t.Run("empty update rejected", func(t *testing.T) {
		rec := f.do(t, http.MethodPut, "/api/me", pair.AccessToken, map[string]string{})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestRoleGates(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, service.SeedAdmin(ctx, f.auth.Store, service.BootstrapParams{
		Email:    "admin@x.com",
		Password: "admin-secret",
		FullName: "Admin",
	}))

	f.signup(t, "user@x.com", "secret123")
	adminPair := f.login(t, "admin@x.com", "admin-secret")
	userPair := f.login(t, "user@x.com", "secret123")

	t.Run("listing is staff-only", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/users", adminPair.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		users := decode[[]map[string]any](t, rec)
		require.Len(t, users, 2)

		rec = f.do(t, http.MethodGet, "/api/users", userPair.AccessToken, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.JSONEq(t, `{"detail": "operation not permitted"}`, rec.Body.String())

		rec = f.do(t, http.MethodGet, "/api/users", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("ban and unban", func(t *testing.T) {
		// Regular users cannot moderate.
		rec := f.do(t, http.MethodPut, "/api/users/admin@x.com/ban", userPair.AccessToken, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)

		rec = f.do(t, http.MethodPut, "/api/users/user@x.com/ban", adminPair.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		// The banned user's session is dead immediately.
		rec = f.do(t, http.MethodGet, "/api/me", userPair.AccessToken, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "user@x.com",
			"password": "secret123",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = f.do(t, http.MethodPut, "/api/users/user@x.com/unban", adminPair.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		f.login(t, "user@x.com", "secret123")
	})

	t.Run("admins cannot ban themselves", func(t *testing.T) {
		rec := f.do(t, http.MethodPut, "/api/users/admin@x.com/ban", adminPair.AccessToken, nil)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("banning a missing user is 404", func(t *testing.T) {
		rec := f.do(t, http.MethodPut, "/api/users/ghost@x.com/ban", adminPair.AccessToken, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	require.Equal(t, "ok", body["status"])

	rec = f.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
