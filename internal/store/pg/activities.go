package pg

import (
	"context"
	"database/sql"
	"errors"

	"smallcrm.org/internal/activity"
)

// ActivityStore implements activity.Store. Appends run on the shared pool
// outside any caller transaction, so audit records survive a failed or
// rolled-back surrounding operation.
type ActivityStore struct {
	db *sql.DB
}

var _ activity.Store = (*ActivityStore)(nil)

// Activities returns the audit log view of the pool.
func (s *Store) Activities() *ActivityStore { return &ActivityStore{db: s.db} }

func (st *ActivityStore) Append(ctx context.Context, entry *activity.Entry) error {
	if st.db == nil {
		return errors.New("database connection unavailable")
	}
	_, err := st.db.ExecContext(ctx, `
		insert into activities (id, actor, action, details, occurred_at)
		values ($1, $2, $3, $4, $5)
	`, entry.ID, entry.Actor, entry.Action, nullIfEmpty(entry.Details), entry.OccurredAt)
	return err
}

func (st *ActivityStore) List(ctx context.Context, limit, offset int) ([]*activity.Entry, int, error) {
	if st.db == nil {
		return nil, 0, errors.New("database connection unavailable")
	}
	limit, offset = clampPage(limit, offset)

	var total int
	if err := st.db.QueryRowContext(ctx, `select count(*) from activities`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := st.db.QueryContext(ctx, `
		select id, actor, action, coalesce(details,''), occurred_at
		from activities
		order by occurred_at desc, id desc
		limit $1 offset $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []*activity.Entry
	for rows.Next() {
		var e activity.Entry
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.Details, &e.OccurredAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (st *ActivityStore) Recent(ctx context.Context, n int) ([]*activity.Entry, error) {
	if st.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	if n <= 0 || n > 100 {
		n = 10
	}
	entries, _, err := st.List(ctx, n, 0)
	return entries, err
}
