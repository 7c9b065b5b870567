package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/photostream/backend/internal/domain"
	"github.com/photostream/backend/internal/store"
)

type usersRepo struct {
	db *sql.DB
}

const userColumns = `id, email, full_name, password_hash, role, refresh_token,
	email_confirmed, active, created_at, updated_at`

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.FullName, u.PasswordHash, string(u.Role), u.RefreshToken,
		u.EmailConfirmed, u.Active, u.CreatedAt, u.UpdatedAt)
	return mapConflict(err)
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) UpdateRefreshToken(ctx context.Context, userID, token string) error {
	return r.exec(ctx,
		`UPDATE users SET refresh_token = ?, updated_at = ? WHERE id = ?`,
		token, time.Now().UTC(), userID)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	return r.exec(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), userID)
}

func (r *usersRepo) UpdateFullName(ctx context.Context, userID, fullName string) error {
	return r.exec(ctx,
		`UPDATE users SET full_name = ?, updated_at = ? WHERE id = ?`,
		fullName, time.Now().UTC(), userID)
}

func (r *usersRepo) SetActive(ctx context.Context, userID string, active bool) error {
	return r.exec(ctx,
		`UPDATE users SET active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), userID)
}

func (r *usersRepo) MarkEmailConfirmed(ctx context.Context, userID string) error {
	return r.exec(ctx,
		`UPDATE users SET email_confirmed = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), userID)
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// exec runs an UPDATE that must affect exactly one row.
func (r *usersRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &role, &u.RefreshToken,
		&u.EmailConfirmed, &u.Active, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.Role = domain.Role(role)
	return u, nil
}
