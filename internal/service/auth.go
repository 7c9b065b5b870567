package service

import (
	"errors"
	"time"

	"context"

	"github.com/photostream/backend/internal/cache"
	"github.com/photostream/backend/internal/domain"
	"github.com/photostream/backend/internal/store"
	"github.com/photostream/backend/pkg/cryptox"
	"github.com/photostream/backend/pkg/slogx"
	"github.com/photostream/backend/pkg/tokenx"
)

var (
	// ErrUnauthorized covers every authentication failure: bad credentials,
	// missing/expired/wrong-scope tokens, unknown subjects and refresh-token
	// mismatches. Handlers must emit one uniform message for all of them;
	// the underlying cause is only ever logged.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden means the caller authenticated but their role is not in
	// the route's allow-list. Kept distinct from ErrUnauthorized: the fix is
	// a different account, not a re-login.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict reports a signup against an existing email.
	ErrConflict = errors.New("account already exists")
)

// AuthService orchestrates credential checks, token issuance/rotation and
// cache-backed request authentication. All mutation goes to the external
// store and cache, so it is safe for concurrent use without locking.
type AuthService struct {
	Codec *tokenx.Codec
	Store store.Store
	Cache *cache.SessionCache

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	EmailTTL   time.Duration
	CacheTTL   time.Duration
}

// Login verifies the credentials and issues a fresh access+refresh pair,
// overwriting the user's stored refresh token. Two concurrent logins race
// last-writer-wins on that column; the earlier refresh token simply becomes
// unusable, which is the intended outcome.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("login rejected: unknown email", "email", email)
			return domain.TokenPair{}, ErrUnauthorized
		}
		return domain.TokenPair{}, err
	}
	if !user.Active {
		l.Info("login rejected: inactive user", "user_id", user.ID)
		return domain.TokenPair{}, ErrUnauthorized
	}
	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		l.Info("login rejected: wrong password", "user_id", user.ID)
		return domain.TokenPair{}, ErrUnauthorized
	}

	return s.issuePair(ctx, user)
}

// Refresh rotates the token pair. The presented refresh token must match the
// one currently stored for the subject exactly; on mismatch the stored token
// is cleared before rejecting, so a replayed (rotated-away) token kills the
// whole session and forces a full re-login.
func (s *AuthService) Refresh(ctx context.Context, presented string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Codec.Decode(presented, tokenx.ScopeRefresh)
	if err != nil {
		l.Info("refresh rejected: token decode failed", "err", err)
		return domain.TokenPair{}, ErrUnauthorized
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrUnauthorized
		}
		return domain.TokenPair{}, err
	}

	if user.RefreshToken == "" || user.RefreshToken != presented {
		// Reuse or tamper detected: invalidate whatever is stored.
		if err := s.Store.Users().UpdateRefreshToken(ctx, user.ID, ""); err != nil {
			l.Error("failed to clear refresh token", "user_id", user.ID, "err", err)
		}
		l.Warn("refresh rejected: token mismatch, session invalidated", "user_id", user.ID)
		return domain.TokenPair{}, ErrUnauthorized
	}
	if !user.Active {
		return domain.TokenPair{}, ErrUnauthorized
	}

	return s.issuePair(ctx, user)
}

// Logout clears the stored refresh token and drops the cached identity.
func (s *AuthService) Logout(ctx context.Context, user domain.User) error {
	if err := s.Store.Users().UpdateRefreshToken(ctx, user.ID, ""); err != nil {
		return err
	}
	if err := s.Cache.InvalidateUser(ctx, user.Email); err != nil {
		slogx.FromContext(ctx).Warn("cache invalidate failed on logout", "err", err)
	}
	return nil
}

// IssueEmailToken mints the token embedded in confirmation links.
func (s *AuthService) IssueEmailToken(subject string) (string, error) {
	return s.Codec.Issue(subject, tokenx.ScopeEmailConfirmation, s.EmailTTL)
}

// ConfirmEmail validates an email-confirmation token and marks the user
// confirmed. Idempotent: confirming twice is not an error.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (domain.User, error) {
	claims, err := s.Codec.Decode(token, tokenx.ScopeEmailConfirmation)
	if err != nil {
		return domain.User{}, ErrUnauthorized
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUnauthorized
		}
		return domain.User{}, err
	}

	if !user.EmailConfirmed {
		if err := s.Store.Users().MarkEmailConfirmed(ctx, user.ID); err != nil {
			return domain.User{}, err
		}
		user.EmailConfirmed = true
		if err := s.Cache.InvalidateUser(ctx, user.Email); err != nil {
			slogx.FromContext(ctx).Warn("cache invalidate failed on confirm", "err", err)
		}
	}
	return user, nil
}

// Authenticate resolves a bearer access token to a user identity. It decodes
// the token with the "access" scope, then resolves the subject through the
// session cache, falling back to the store on a miss and populating the
// cache on the way out. Every failure collapses to ErrUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, rawToken string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Codec.Decode(rawToken, tokenx.ScopeAccess)
	if err != nil {
		l.Info("authenticate rejected: token decode failed", "err", err)
		return domain.User{}, ErrUnauthorized
	}

	email := claims.Subject
	if email == "" {
		return domain.User{}, ErrUnauthorized
	}

	// Cache trouble is never fatal; treat it as a miss.
	cached, err := s.Cache.GetUser(ctx, email)
	if err != nil {
		l.Warn("session cache unavailable, falling back to store", "err", err)
	}
	if cached != nil {
		if !cached.Active {
			return domain.User{}, ErrUnauthorized
		}
		return *cached, nil
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("authenticate rejected: unknown subject", "email", email)
			return domain.User{}, ErrUnauthorized
		}
		return domain.User{}, err
	}
	if !user.Active {
		return domain.User{}, ErrUnauthorized
	}

	if err := s.Cache.SetUser(ctx, user, s.CacheTTL); err != nil {
		l.Warn("session cache populate failed", "err", err)
	}

	return user, nil
}

// issuePair signs a new access+refresh pair and persists the refresh token
// as the user's single live one.
func (s *AuthService) issuePair(ctx context.Context, user domain.User) (domain.TokenPair, error) {
	access, err := s.Codec.Issue(user.Email, tokenx.ScopeAccess, s.AccessTTL)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.Codec.Issue(user.Email, tokenx.ScopeRefresh, s.RefreshTTL)
	if err != nil {
		return domain.TokenPair{}, err
	}

	if err := s.Store.Users().UpdateRefreshToken(ctx, user.ID, refresh); err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
	}, nil
}
