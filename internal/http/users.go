package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/photostream/backend/internal/service"
	"github.com/photostream/backend/internal/store"
	"github.com/photostream/backend/pkg/httpx"
	"github.com/photostream/backend/pkg/slogx"
)

// MeHandler serves the authenticated user's own profile.
type MeHandler struct {
	Users *service.UserService
}

func (h *MeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}

type updateMeRequest struct {
	FullName *string `json:"full_name"`
	Password *string `json:"password"`
}

func (h *MeHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := UserFromContext(ctx)
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req updateMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FullName == nil && req.Password == nil {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "nothing to update")
		return
	}
	if req.Password != nil && utf8.RuneCountInString(*req.Password) < minPasswordLength {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "password must be at least 8 characters")
		return
	}
	if req.FullName != nil {
		trimmed := strings.TrimSpace(*req.FullName)
		req.FullName = &trimmed
	}

	updated, err := h.Users.UpdateProfile(ctx, user, service.UpdateProfileParams{
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		slogx.FromContext(ctx).Error("profile update failed", "user_id", user.ID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, updated)
}

// UsersHandler exposes the staff-facing account listing and moderation
// actions. Route-level role gates decide who gets here.
type UsersHandler struct {
	Users *service.UserService
}

func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.Users.ListUsers(ctx)
	if err != nil {
		slogx.FromContext(ctx).Error("user listing failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, users)
}

func (h *UsersHandler) HandleBan(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *UsersHandler) HandleUnban(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *UsersHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	ctx := r.Context()

	email := strings.ToLower(strings.TrimSpace(r.PathValue("email")))
	if email == "" {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "missing email")
		return
	}

	// Admins cannot ban themselves; there may be no one left to undo it.
	if caller, ok := UserFromContext(ctx); ok && !active && caller.Email == email {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "cannot ban your own account")
		return
	}

	user, err := h.Users.SetActive(ctx, email, active)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		slogx.FromContext(ctx).Error("ban state change failed", "email", email, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, user)
}
