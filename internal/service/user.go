package service

import (
	"context"
	"errors"

	"github.com/photostream/backend/internal/cache"
	"github.com/photostream/backend/internal/domain"
	"github.com/photostream/backend/internal/store"
	"github.com/photostream/backend/pkg/cryptox"
	"github.com/photostream/backend/pkg/idx"
	"github.com/photostream/backend/pkg/slogx"
)

// UserService handles account lifecycle outside of token flows. Mutations
// that change what Authenticate would return also drop the cached snapshot.
type UserService struct {
	Store store.Store
	Cache *cache.SessionCache
}

// SignupParams is the accepted signup payload.
type SignupParams struct {
	Email    string
	FullName string
	Password string
}

// Signup creates a new account with role "user". Returns ErrConflict when
// the email is already registered.
func (s *UserService) Signup(ctx context.Context, p SignupParams) (domain.User, error) {
	hash, err := cryptox.HashPassword(p.Password)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Email:        p.Email,
		FullName:     p.FullName,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Active:       true,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrConflict
		}
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("user created", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// UpdateProfileParams carries optional profile mutations; nil means "leave
// unchanged".
type UpdateProfileParams struct {
	FullName *string
	Password *string
}

// UpdateProfile applies the requested changes to user and invalidates the
// cached snapshot.
func (s *UserService) UpdateProfile(ctx context.Context, user domain.User, p UpdateProfileParams) (domain.User, error) {
	if p.FullName != nil {
		if err := s.Store.Users().UpdateFullName(ctx, user.ID, *p.FullName); err != nil {
			return domain.User{}, err
		}
		user.FullName = *p.FullName
	}
	if p.Password != nil {
		hash, err := cryptox.HashPassword(*p.Password)
		if err != nil {
			return domain.User{}, err
		}
		if err := s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			return domain.User{}, err
		}
	}

	s.invalidate(ctx, user.Email)
	return user, nil
}

// ListUsers returns every account, newest first.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.Store.Users().ListUsers(ctx)
}

// SetActive bans (false) or reinstates (true) the account with the given
// email. A banned user fails authentication as soon as their cached snapshot
// is gone, which this forces immediately.
func (s *UserService) SetActive(ctx context.Context, email string, active bool) (domain.User, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		return domain.User{}, err
	}

	if err := s.Store.Users().SetActive(ctx, user.ID, active); err != nil {
		return domain.User{}, err
	}
	user.Active = active

	if !active {
		// Also kill the session so the ban takes effect on the next request.
		if err := s.Store.Users().UpdateRefreshToken(ctx, user.ID, ""); err != nil {
			return domain.User{}, err
		}
		user.RefreshToken = ""
	}

	s.invalidate(ctx, user.Email)
	return user, nil
}

func (s *UserService) invalidate(ctx context.Context, email string) {
	if err := s.Cache.InvalidateUser(ctx, email); err != nil {
		slogx.FromContext(ctx).Warn("cache invalidate failed", "email", email, "err", err)
	}
}
