package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"smallcrm.org/internal/ids"
)

// User administration failures.
var (
	ErrUserNotFound     = errors.New("auth: user not found")
	ErrUsernameTaken    = errors.New("auth: username already exists")
	ErrEmailTaken       = errors.New("auth: email already registered")
	ErrSelfDelete       = errors.New("auth: cannot delete own account")
	ErrLastAdmin        = errors.New("auth: cannot delete the last administrator")
	ErrWrongOldPassword = errors.New("auth: incorrect old password")
	ErrWeakPassword     = errors.New("auth: password too short")
)

const minPasswordLength = 8

// Activity action codes emitted by user administration.
const (
	ActionUserCreated     = "USER_CREATED"
	ActionUserUpdated     = "USER_UPDATED"
	ActionUserDeleted     = "USER_DELETED"
	ActionPasswordChanged = "PASSWORD_CHANGED"
)

// CreateUserInput carries the fields for a new account.
type CreateUserInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Email     string
	Role      Role
}

// ChangePasswordInput carries a password change request. OldPassword is
// required unless an administrator changes another user's password.
type ChangePasswordInput struct {
	OldPassword string
	NewPassword string
}

// Users provides account administration on top of the identity store. All
// mutations record an activity entry with the acting principal.
type Users struct {
	store    UserStore
	activity Recorder
}

// NewUsers constructs the user administration service.
func NewUsers(store UserStore, activity Recorder) (*Users, error) {
	if store == nil {
		return nil, errors.New("auth: user store is required")
	}
	if activity == nil {
		return nil, errors.New("auth: activity recorder is required")
	}
	return &Users{store: store, activity: activity}, nil
}

// Create registers a new account. Username and email must be unique; the
// password is stored as a bcrypt hash only.
func (u *Users) Create(ctx context.Context, in CreateUserInput) (*User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if len(in.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	taken, err := u.store.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUsernameTaken
	}
	if in.Email != "" {
		used, err := u.store.ExistsByEmail(ctx, in.Email)
		if err != nil {
			return nil, err
		}
		if used {
			return nil, ErrEmailTaken
		}
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = RoleUser
	}
	user := &User{
		ID:           ids.New(),
		Username:     in.Username,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        in.Email,
		Role:         role,
		Active:       true,
	}
	if err := u.store.Create(ctx, user); err != nil {
		return nil, err
	}

	u.activity.Record(ctx, ActorFromContext(ctx), ActionUserCreated,
		fmt.Sprintf("user %s created with role %s", user.Username, user.Role))
	return user, nil
}

// Get returns a user by id.
func (u *Users) Get(ctx context.Context, id string) (*User, error) {
	user, err := u.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetByUsername returns a user by username.
func (u *Users) GetByUsername(ctx context.Context, username string) (*User, error) {
	return u.store.FindByUsername(ctx, strings.TrimSpace(username))
}

// List returns a page of users plus the total count.
func (u *Users) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return u.store.List(ctx, limit, offset)
}

// Update applies a partial update, enforcing username and email uniqueness.
func (u *Users) Update(ctx context.Context, id string, upd UserUpdate) (*User, error) {
	existing, err := u.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Username != nil {
		name := strings.TrimSpace(*upd.Username)
		if name != existing.Username {
			taken, err := u.store.ExistsByUsername(ctx, name)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, ErrUsernameTaken
			}
		}
		upd.Username = &name
	}
	if upd.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*upd.Email))
		if email != "" && email != existing.Email {
			used, err := u.store.ExistsByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if used {
				return nil, ErrEmailTaken
			}
		}
		upd.Email = &email
	}

	updated, err := u.store.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	u.activity.Record(ctx, ActorFromContext(ctx), ActionUserUpdated,
		fmt.Sprintf("user %s updated", updated.Username))
	return updated, nil
}

// Delete removes an account. The caller may not delete itself, and the last
// administrator account is protected.
func (u *Users) Delete(ctx context.Context, id string) error {
	user, err := u.store.Find(ctx, id)
	if err != nil {
		return err
	}
	if p, ok := PrincipalFromContext(ctx); ok && p.UserID == id {
		return ErrSelfDelete
	}
	if user.Role == RoleAdmin {
		admins, err := u.store.CountAdmins(ctx)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return ErrLastAdmin
		}
	}
	if err := u.store.Delete(ctx, id); err != nil {
		return err
	}
	u.activity.Record(ctx, ActorFromContext(ctx), ActionUserDeleted,
		fmt.Sprintf("user %s deleted", user.Username))
	return nil
}

// ChangePassword updates a user's password. When the caller is not an
// administrator acting on another account, the old password must verify.
func (u *Users) ChangePassword(ctx context.Context, id string, in ChangePasswordInput) error {
	user, err := u.store.Find(ctx, id)
	if err != nil {
		return err
	}

	adminForOther := false
	if p, ok := PrincipalFromContext(ctx); ok {
		adminForOther = p.Role == RoleAdmin && p.UserID != id
	}
	if !adminForOther {
		if strings.TrimSpace(in.OldPassword) == "" {
			return ErrWrongOldPassword
		}
		if err := VerifyPassword(user.PasswordHash, in.OldPassword); err != nil {
			return ErrWrongOldPassword
		}
	}
	if len(in.NewPassword) < minPasswordLength {
		return ErrWeakPassword
	}

	hash, err := HashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	if err := u.store.UpdatePassword(ctx, id, hash); err != nil {
		return err
	}
	u.activity.Record(ctx, ActorFromContext(ctx), ActionPasswordChanged,
		fmt.Sprintf("password changed for user %s", user.Username))
	return nil
}
