package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"smallcrm.org/internal/auth"
)

func userRows(u *auth.User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "username", "password_hash", "first_name", "last_name",
		"email", "role", "active", "created_at", "updated_at",
	}).AddRow(u.ID, u.Username, u.PasswordHash, u.FirstName, u.LastName,
		u.Email, string(u.Role), u.Active, u.CreatedAt, u.UpdatedAt)
}

func TestUserStoreFindByUsername(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	want := &auth.User{
		ID:           "user-1",
		Username:     "alice",
		PasswordHash: "hash",
		FirstName:    "Alice",
		Email:        "alice@example.com",
		Role:         auth.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	mock.ExpectQuery("select .* from users where username =").
		WithArgs("alice").
		WillReturnRows(userRows(want))

	store := NewWithDB(db).Users()
	got, err := store.FindByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if got.ID != want.ID || got.Role != auth.RoleAdmin || !got.Active {
		t.Fatalf("FindByUsername: got %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserStoreFindNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select .* from users where id =").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	store := NewWithDB(db).Users()
	if _, err := store.Find(context.Background(), "missing"); !errors.Is(err, auth.ErrUserNotFound) {
		t.Fatalf("Find: got %v, want ErrUserNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserStoreCreateUniqueViolations(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		want       error
	}{
		{"username taken", "users_username_key", auth.ErrUsernameTaken},
		{"email taken", "users_email_key", auth.ErrEmailTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("sqlmock.New: %v", err)
			}
			defer db.Close()

			mock.ExpectQuery("insert into users").
				WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: tt.constraint})

			store := NewWithDB(db).Users()
			u := &auth.User{ID: "user-1", Username: "alice", PasswordHash: "hash", Role: auth.RoleUser, Active: true}
			if err := store.Create(context.Background(), u); !errors.Is(err, tt.want) {
				t.Fatalf("Create: got %v, want %v", err, tt.want)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestUserStoreUpdateBuildsPartialSet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	role := auth.RoleAdmin
	active := false
	mock.ExpectExec(`update users set role = \$1, active = \$2, updated_at = now\(\) where id = \$3`).
		WithArgs(string(role), active, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	now := time.Now().UTC()
	want := &auth.User{ID: "user-1", Username: "alice", PasswordHash: "hash", Role: role, CreatedAt: now, UpdatedAt: now}
	mock.ExpectQuery("select .* from users where id =").
		WithArgs("user-1").
		WillReturnRows(userRows(want))

	store := NewWithDB(db).Users()
	got, err := store.Update(context.Background(), "user-1", auth.UserUpdate{Role: &role, Active: &active})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Role != auth.RoleAdmin {
		t.Fatalf("Update: role %v", got.Role)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestClampPage(t *testing.T) {
	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, 100, 0},
		{-5, -3, 100, 0},
		{5000, 10, 1000, 10},
		{25, 50, 25, 50},
	}
	for _, tt := range tests {
		limit, offset := clampPage(tt.limit, tt.offset)
		if limit != tt.wantLimit || offset != tt.wantOffset {
			t.Fatalf("clampPage(%d, %d) = (%d, %d), want (%d, %d)",
				tt.limit, tt.offset, limit, offset, tt.wantLimit, tt.wantOffset)
		}
	}
}
