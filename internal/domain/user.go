package domain

import "time"

// Role is a user's moderation role. The set is closed; there is no hierarchy,
// every route names exactly the roles it admits.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleUser:
		return true
	}
	return false
}

type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name"`
	PasswordHash   string    `json:"-"`
	Role           Role      `json:"role"`
	RefreshToken   string    `json:"-"` // the single live refresh token, empty when logged out
	EmailConfirmed bool      `json:"email_confirmed"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
