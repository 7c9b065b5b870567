package service

import (
	"context"
	"fmt"

	"github.com/photostream/backend/internal/domain"
	"github.com/photostream/backend/internal/store"
	"github.com/photostream/backend/pkg/cryptox"
	"github.com/photostream/backend/pkg/idx"
	"github.com/photostream/backend/pkg/slogx"
)

// BootstrapParams configures the admin account seeded on first start.
type BootstrapParams struct {
	Email    string
	Password string
	FullName string
}

// SeedAdmin creates the initial admin account when the user table is empty.
// The account is created pre-confirmed and active so the instance is usable
// straight away. On every later start this is a no-op.
func SeedAdmin(ctx context.Context, st store.Store, p BootstrapParams) error {
	empty, err := st.Users().IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("check user table: %w", err)
	}
	if !empty {
		return nil
	}

	if p.Email == "" || p.Password == "" {
		return fmt.Errorf("user table is empty but no admin credentials configured")
	}

	hash, err := cryptox.HashPassword(p.Password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := domain.User{
		ID:             idx.New().String(),
		Email:          p.Email,
		FullName:       p.FullName,
		PasswordHash:   hash,
		Role:           domain.RoleAdmin,
		EmailConfirmed: true,
		Active:         true,
	}
	if err := st.Users().CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slogx.FromContext(ctx).Info("seeded initial admin user", "email", admin.Email)
	return nil
}
