package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/photostream/backend/internal/service"
	"github.com/photostream/backend/pkg/httpx"
	"github.com/photostream/backend/pkg/slogx"
)

const minPasswordLength = 8

// SignupHandler registers a new account.
type SignupHandler struct {
	Users *service.UserService
	Auth  *service.AuthService
}

type signupRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

func (h *SignupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(req.Email); err != nil {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "invalid email address")
		return
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "password must be at least 8 characters")
		return
	}

	user, err := h.Users.Signup(ctx, service.SignupParams{
		Email:    req.Email,
		FullName: strings.TrimSpace(req.FullName),
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, service.ErrConflict) {
			httpx.WriteError(w, http.StatusConflict, "an account with this email already exists")
			return
		}
		slogx.FromContext(ctx).Error("signup failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// The confirmation token would normally ride an email; without an
	// outbound mailer it is returned in the response for the client to
	// surface.
	confirmToken, err := h.Auth.IssueEmailToken(user.Email)
	if err != nil {
		slogx.FromContext(ctx).Error("email token issue failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"user":               user,
		"confirmation_token": confirmToken,
	})
}

// LoginHandler exchanges credentials for a token pair.
type LoginHandler struct {
	Auth *service.AuthService
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := h.Auth.Login(ctx, strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			writeUnauthorized(w)
			return
		}
		slogx.FromContext(ctx).Error("login failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, pair)
}

// RefreshHandler rotates a refresh token for a new pair. The token rides the
// Authorization header like an access token would.
type RefreshHandler struct {
	Auth *service.AuthService
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		writeUnauthorized(w)
		return
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

	pair, err := h.Auth.Refresh(ctx, raw)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			writeUnauthorized(w)
			return
		}
		slogx.FromContext(ctx).Error("refresh failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, pair)
}

// LogoutHandler ends the authenticated user's session.
type LogoutHandler struct {
	Auth *service.AuthService
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := UserFromContext(ctx)
	if !ok {
		writeUnauthorized(w)
		return
	}

	if err := h.Auth.Logout(ctx, user); err != nil {
		slogx.FromContext(ctx).Error("logout failed", "user_id", user.ID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"detail": "logged out"})
}

// ConfirmHandler validates an email-confirmation token from the link path.
type ConfirmHandler struct {
	Auth *service.AuthService
}

func (h *ConfirmHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := r.PathValue("token")
	if token == "" {
		writeUnauthorized(w)
		return
	}

	user, err := h.Auth.ConfirmEmail(ctx, token)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			writeUnauthorized(w)
			return
		}
		slogx.FromContext(ctx).Error("email confirmation failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"detail": "email confirmed",
		"email":  user.Email,
	})
}
