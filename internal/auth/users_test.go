package auth

import (
	"context"
	"errors"
	"testing"
)

func adminContext(userID string) context.Context {
	return ContextWithPrincipal(context.Background(), Principal{
		UserID: userID, Username: "root", Role: RoleAdmin, Active: true,
	})
}

func TestUsersCreate(t *testing.T) {
	store := newFakeUserStore(testUser(t, "alice", "password-one", true))
	rec := &fakeRecorder{}
	users, err := NewUsers(store, rec)
	if err != nil {
		t.Fatalf("NewUsers: %v", err)
	}

	created, err := users.Create(context.Background(), CreateUserInput{
		Username: "bob",
		Password: "password-two",
		Email:    "bob@example.com",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Role != RoleUser {
		t.Fatalf("default role: got %s, want USER", created.Role)
	}
	if !created.Active {
		t.Fatal("new accounts must be active")
	}
	if created.PasswordHash == "password-two" {
		t.Fatal("password stored in plain text")
	}
	if got := rec.countAction(ActionUserCreated); got != 1 {
		t.Fatalf("USER_CREATED records: got %d, want 1", got)
	}

	if _, err := users.Create(context.Background(), CreateUserInput{
		Username: "alice", Password: "password-xyz",
	}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("duplicate username: got %v", err)
	}
	if _, err := users.Create(context.Background(), CreateUserInput{
		Username: "short", Password: "tiny",
	}); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("short password: got %v", err)
	}
}

func TestUsersDeleteGuards(t *testing.T) {
	admin := testUser(t, "root", "admin-password", true)
	admin.Role = RoleAdmin
	other := testUser(t, "alice", "password-one", true)
	store := newFakeUserStore(admin, other)
	users, err := NewUsers(store, &fakeRecorder{})
	if err != nil {
		t.Fatalf("NewUsers: %v", err)
	}

	ctx := adminContext(admin.ID)

	if err := users.Delete(ctx, admin.ID); !errors.Is(err, ErrSelfDelete) {
		t.Fatalf("self delete: got %v", err)
	}

	// Only one admin exists; deleting it from another admin context is still
	// blocked by the last-admin rule.
	otherAdminCtx := adminContext("id-someone-else")
	if err := users.Delete(otherAdminCtx, admin.ID); !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("last admin: got %v", err)
	}

	if err := users.Delete(ctx, other.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Find(context.Background(), other.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatal("user still present after delete")
	}
}

func TestChangePassword(t *testing.T) {
	user := testUser(t, "alice", "old-password-1", true)
	store := newFakeUserStore(user)
	users, err := NewUsers(store, &fakeRecorder{})
	if err != nil {
		t.Fatalf("NewUsers: %v", err)
	}

	selfCtx := ContextWithPrincipal(context.Background(), Principal{
		UserID: user.ID, Username: "alice", Role: RoleUser, Active: true,
	})

	if err := users.ChangePassword(selfCtx, user.ID, ChangePasswordInput{
		OldPassword: "wrong", NewPassword: "new-password-1",
	}); !errors.Is(err, ErrWrongOldPassword) {
		t.Fatalf("wrong old password: got %v", err)
	}

	if err := users.ChangePassword(selfCtx, user.ID, ChangePasswordInput{
		OldPassword: "old-password-1", NewPassword: "short",
	}); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("weak new password: got %v", err)
	}

	if err := users.ChangePassword(selfCtx, user.ID, ChangePasswordInput{
		OldPassword: "old-password-1", NewPassword: "new-password-1",
	}); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if err := VerifyPassword(user.PasswordHash, "new-password-1"); err != nil {
		t.Fatal("new password does not verify")
	}

	// Admin acting on another account skips the old-password check.
	if err := users.ChangePassword(adminContext("id-root"), user.ID, ChangePasswordInput{
		NewPassword: "admin-reset-1",
	}); err != nil {
		t.Fatalf("admin reset: %v", err)
	}
	if err := VerifyPassword(user.PasswordHash, "admin-reset-1"); err != nil {
		t.Fatal("admin reset password does not verify")
	}
}
