package auth

import (
	"context"
	"strings"
	"time"
)

// Role is the authorization role attached to a user account.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// ParseRole normalizes a role string; unknown values fall back to RoleUser.
func ParseRole(raw string) Role {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(RoleAdmin):
		return RoleAdmin
	default:
		return RoleUser
	}
}

// User is a stored credential record plus profile fields.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	Email        string    `json:"email,omitempty"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// Principal is the resolved identity of the authenticated caller for one
// request. It is reconstructed per request and never persisted.
type Principal struct {
	UserID   string
	Username string
	Role     Role
	Active   bool
}

// HasRole reports whether the principal carries the given role.
func (p Principal) HasRole(role Role) bool {
	return p.Role == role
}

// UserUpdate carries optional fields for a partial user update.
type UserUpdate struct {
	Username  *string
	FirstName *string
	LastName  *string
	Email     *string
	Role      *Role
	Active    *bool
}

// UserStore describes the identity-store operations required by the auth
// subsystem and user administration. Writes must be reflected immediately in
// subsequent reads.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CountAdmins(ctx context.Context) (int, error)
}
