package activity

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	entries   []*Entry
	appendErr error
}

func (f *fakeStore) Append(ctx context.Context, entry *Entry) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeStore) List(ctx context.Context, limit, offset int) ([]*Entry, int, error) {
	return f.entries, len(f.entries), nil
}

func (f *fakeStore) Recent(ctx context.Context, n int) ([]*Entry, error) {
	if n > len(f.entries) {
		n = len(f.entries)
	}
	return f.entries[:n], nil
}

func TestRecord(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{}
	svc, err := NewService(store, WithClock(func() time.Time { return t0 }))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	svc.Record(context.Background(), "alice", "USER_LOGIN", "user alice logged in")
	if len(store.entries) != 1 {
		t.Fatalf("entries: got %d, want 1", len(store.entries))
	}
	e := store.entries[0]
	if e.ID == "" {
		t.Fatal("entry has no id")
	}
	if e.Actor != "alice" || e.Action != "USER_LOGIN" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if !e.OccurredAt.Equal(t0) {
		t.Fatalf("occurred_at: got %v, want %v", e.OccurredAt, t0)
	}
}

func TestRecordDefaultsActorToSystem(t *testing.T) {
	store := &fakeStore{}
	svc, err := NewService(store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	svc.Record(context.Background(), "  ", "ORDER_CREATED", "")
	if len(store.entries) != 1 {
		t.Fatalf("entries: got %d, want 1", len(store.entries))
	}
	if store.entries[0].Actor != "SYSTEM" {
		t.Fatalf("actor: got %q, want SYSTEM", store.entries[0].Actor)
	}
}

func TestRecordIgnoresEmptyAction(t *testing.T) {
	store := &fakeStore{}
	svc, err := NewService(store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	svc.Record(context.Background(), "alice", "", "whatever")
	if len(store.entries) != 0 {
		t.Fatalf("entries: got %d, want 0", len(store.entries))
	}
}

func TestRecordSwallowsStoreFailure(t *testing.T) {
	store := &fakeStore{appendErr: errors.New("db down")}
	svc, err := NewService(store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	// Must not panic or propagate.
	svc.Record(context.Background(), "alice", "USER_LOGIN", "details")
}
