// Package store defines the persistence interface the service depends on.
// Concrete drivers live under drivers/. The store is the system of record for
// users; the session cache in internal/cache only accelerates reads.
package store

import (
	"context"
	"errors"

	"github.com/photostream/backend/internal/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface.
type Store interface {
	Users() Users

	// ApplyMigrations brings the schema up to date using the embedded
	// migration files.
	ApplyMigrations() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}

type Users interface {
	// GetUserByEmail is the authoritative lookup behind authentication.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// ListUsers returns all users, newest first.
	ListUsers(ctx context.Context) ([]domain.User, error)

	// UpdateRefreshToken overwrites the user's stored refresh token.
	// An empty token clears it, invalidating future refreshes.
	UpdateRefreshToken(ctx context.Context, userID, token string) error

	// UpdatePasswordHash sets a new credential hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error

	// UpdateFullName mutates the display name.
	UpdateFullName(ctx context.Context, userID, fullName string) error

	// SetActive bans (false) or reinstates (true) a user.
	SetActive(ctx context.Context, userID string, active bool) error

	// MarkEmailConfirmed records a successful email confirmation.
	MarkEmailConfirmed(ctx context.Context, userID string) error

	// IsEmpty reports whether any users exist, used by bootstrap.
	IsEmpty(ctx context.Context) (bool, error)
}
