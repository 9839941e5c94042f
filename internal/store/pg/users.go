package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"smallcrm.org/internal/auth"
)

// UserStore implements auth.UserStore on the shared pool.
type UserStore struct {
	db *sql.DB
}

var _ auth.UserStore = (*UserStore)(nil)

// Users returns the identity store view of the pool.
func (s *Store) Users() *UserStore { return &UserStore{db: s.db} }

const userColumns = `id, username, password_hash, coalesce(first_name,''), coalesce(last_name,''), coalesce(email,''), role, active, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*auth.User, error) {
	var u auth.User
	var role string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Email, &role, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = auth.ParseRole(role)
	return &u, nil
}

func (st *UserStore) Create(ctx context.Context, u *auth.User) error {
	if st.db == nil {
		return errors.New("database connection unavailable")
	}
	err := st.db.QueryRowContext(ctx, `
		insert into users (id, username, password_hash, first_name, last_name, email, role, active)
		values ($1, $2, $3, $4, $5, nullif($6,''), $7, $8)
		returning created_at, updated_at
	`, u.ID, u.Username, u.PasswordHash, nullIfEmpty(u.FirstName), nullIfEmpty(u.LastName), strings.ToLower(u.Email), string(u.Role), u.Active).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "email") {
				return auth.ErrEmailTaken
			}
			return auth.ErrUsernameTaken
		}
		return err
	}
	return nil
}

func (st *UserStore) Find(ctx context.Context, id string) (*auth.User, error) {
	if st.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	u, err := scanUser(st.db.QueryRowContext(ctx, `select `+userColumns+` from users where id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (st *UserStore) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	if st.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	u, err := scanUser(st.db.QueryRowContext(ctx, `select `+userColumns+` from users where username = $1`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (st *UserStore) List(ctx context.Context, limit, offset int) ([]*auth.User, int, error) {
	if st.db == nil {
		return nil, 0, errors.New("database connection unavailable")
	}
	limit, offset = clampPage(limit, offset)

	var total int
	if err := st.db.QueryRowContext(ctx, `select count(*) from users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := st.db.QueryContext(ctx, `
		select `+userColumns+`
		from users
		order by created_at desc, id desc
		limit $1 offset $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*auth.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (st *UserStore) Update(ctx context.Context, id string, upd auth.UserUpdate) (*auth.User, error) {
	if st.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Username != nil {
		sets = append(sets, fmt.Sprintf("username = $%d", idx))
		args = append(args, *upd.Username)
		idx++
	}
	if upd.FirstName != nil {
		sets = append(sets, fmt.Sprintf("first_name = $%d", idx))
		args = append(args, nullIfEmpty(*upd.FirstName))
		idx++
	}
	if upd.LastName != nil {
		sets = append(sets, fmt.Sprintf("last_name = $%d", idx))
		args = append(args, nullIfEmpty(*upd.LastName))
		idx++
	}
	if upd.Email != nil {
		sets = append(sets, fmt.Sprintf("email = nullif($%d,'')", idx))
		args = append(args, strings.ToLower(*upd.Email))
		idx++
	}
	if upd.Role != nil {
		sets = append(sets, fmt.Sprintf("role = $%d", idx))
		args = append(args, string(*upd.Role))
		idx++
	}
	if upd.Active != nil {
		sets = append(sets, fmt.Sprintf("active = $%d", idx))
		args = append(args, *upd.Active)
		idx++
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update users set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := st.db.ExecContext(ctx, query, args...)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
				if strings.Contains(pgErr.ConstraintName, "email") {
					return nil, auth.ErrEmailTaken
				}
				return nil, auth.ErrUsernameTaken
			}
			return nil, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if aff == 0 {
			return nil, auth.ErrUserNotFound
		}
	}
	return st.Find(ctx, id)
}

func (st *UserStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if st.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := st.db.ExecContext(ctx, `
		update users set password_hash = $2, updated_at = now() where id = $1
	`, id, passwordHash)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (st *UserStore) Delete(ctx context.Context, id string) error {
	if st.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := st.db.ExecContext(ctx, `delete from users where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (st *UserStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if st.db == nil {
		return false, errors.New("database connection unavailable")
	}
	var exists bool
	if err := st.db.QueryRowContext(ctx, `select exists(select 1 from users where username = $1)`, username).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (st *UserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if st.db == nil {
		return false, errors.New("database connection unavailable")
	}
	var exists bool
	if err := st.db.QueryRowContext(ctx, `select exists(select 1 from users where email = lower($1))`, email).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (st *UserStore) CountAdmins(ctx context.Context) (int, error) {
	if st.db == nil {
		return 0, errors.New("database connection unavailable")
	}
	var n int
	if err := st.db.QueryRowContext(ctx, `select count(*) from users where role = $1 and active`, string(auth.RoleAdmin)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
