// Package activity provides the append-only audit log shared by the auth core
// and the CRM services. Records are written on the store's own connection so
// they survive even when the surrounding operation fails.
package activity

import (
	"context"
	"errors"
	"strings"
	"time"

	"smallcrm.org/internal/ids"
	"smallcrm.org/internal/obs"
)

// Entry is one immutable audit record.
type Entry struct {
	ID         string    `json:"id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	Details    string    `json:"details"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Store appends and lists audit entries.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context, limit, offset int) ([]*Entry, int, error)
	Recent(ctx context.Context, n int) ([]*Entry, error)
}

// Service records activity events. Record is fire-and-forget for callers:
// persistence failures are logged, never propagated.
type Service struct {
	store Store
	now   func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the activity service.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("activity: store is required")
	}
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Record appends one audit entry and mirrors it as a structured log line.
func (s *Service) Record(ctx context.Context, actor, action, details string) {
	action = strings.TrimSpace(action)
	if action == "" {
		return
	}
	if strings.TrimSpace(actor) == "" {
		actor = "SYSTEM"
	}
	entry := &Entry{
		ID:         ids.New(),
		Actor:      actor,
		Action:     action,
		Details:    details,
		OccurredAt: s.now().UTC(),
	}
	if err := s.store.Append(ctx, entry); err != nil {
		obs.LogEvent("error", "activity append failed", map[string]any{
			"action": action,
			"actor":  actor,
			"error":  err.Error(),
		})
		return
	}
	obs.LogEvent("info", "audit", map[string]any{
		"type":    "audit",
		"actor":   actor,
		"action":  action,
		"details": details,
	})
}

// List returns a page of entries, newest first, plus the total count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Entry, int, error) {
	return s.store.List(ctx, limit, offset)
}

// Recent returns the n most recent entries.
func (s *Service) Recent(ctx context.Context, n int) ([]*Entry, error) {
	return s.store.Recent(ctx, n)
}
