package httpapi

import (
	"errors"
	"net/http"

	"smallcrm.org/internal/auth"
)

type createUserRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Password  string `json:"password" validate:"required,min=8,max=200"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Email     string `json:"email" validate:"omitempty,email"`
	Role      string `json:"role" validate:"omitempty,oneof=ADMIN USER"`
}

type updateUserRequest struct {
	Username  *string `json:"username" validate:"omitempty,min=3,max=50"`
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Role      *string `json:"role" validate:"omitempty,oneof=ADMIN USER"`
	Active    *bool   `json:"active"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=200"`
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit, offset, err := parsePage(r)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		users, total, err := a.users.List(r.Context(), limit, offset)
		if err != nil {
			handleUserError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, listPage{Items: users, Total: total, Limit: limit, Offset: offset})
	case http.MethodPost:
		var req createUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := a.validate.Struct(req); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid user payload")
			return
		}
		user, err := a.users.Create(r.Context(), auth.CreateUserInput{
			Username:  req.Username,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Role:      auth.ParseRole(req.Role),
		})
		if err != nil {
			handleUserError(w, r, err)
			return
		}
		writeData(w, http.StatusCreated, user)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r.URL.Path, "/api/users/")
	switch {
	case len(parts) == 1:
		a.requireRole(auth.RoleAdmin, func(w http.ResponseWriter, r *http.Request) {
			a.handleUserByID(w, r, parts[0])
		})(w, r)
	case len(parts) == 2 && parts[1] == "password":
		// Self-service password change; the service enforces the old-password
		// rule and the admin-for-other bypass.
		a.requireAuth(func(w http.ResponseWriter, r *http.Request) {
			a.handleChangePassword(w, r, parts[0])
		})(w, r)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleUserByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		user, err := a.users.Get(r.Context(), id)
		if err != nil {
			handleUserError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, user)
	case http.MethodPut:
		var req updateUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := a.validate.Struct(req); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid user payload")
			return
		}
		upd := auth.UserUpdate{
			Username:  req.Username,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Active:    req.Active,
		}
		if req.Role != nil {
			role := auth.ParseRole(*req.Role)
			upd.Role = &role
		}
		user, err := a.users.Update(r.Context(), id, upd)
		if err != nil {
			handleUserError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, user)
	case http.MethodDelete:
		if err := a.users.Delete(r.Context(), id); err != nil {
			handleUserError(w, r, err)
			return
		}
		writeMessage(w, http.StatusOK, "user deleted")
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, "new password must be at least 8 characters")
		return
	}
	principal, _ := auth.PrincipalFromContext(r.Context())
	if principal.UserID != id && !principal.HasRole(auth.RoleAdmin) {
		writeError(w, r, http.StatusForbidden, "cannot change another user's password")
		return
	}
	err := a.users.ChangePassword(r.Context(), id, auth.ChangePasswordInput{
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		handleUserError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "password changed")
}

func handleUserError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		writeError(w, r, http.StatusNotFound, "user not found")
	case errors.Is(err, auth.ErrUsernameTaken), errors.Is(err, auth.ErrEmailTaken):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrSelfDelete), errors.Is(err, auth.ErrLastAdmin):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrWrongOldPassword):
		writeError(w, r, http.StatusForbidden, "old password does not match")
	case errors.Is(err, auth.ErrWeakPassword):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "user operation failed")
	}
}
