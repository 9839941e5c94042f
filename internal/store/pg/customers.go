package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"smallcrm.org/internal/crm"
)

// CustomerStore implements crm.CustomerStore on the shared pool.
type CustomerStore struct {
	db *sql.DB
}

var _ crm.CustomerStore = (*CustomerStore)(nil)

// Customers returns the customer store view of the pool.
func (s *Store) Customers() *CustomerStore { return &CustomerStore{db: s.db} }

const customerColumns = `id, first_name, last_name, coalesce(email,''), coalesce(phone,''), coalesce(address,''), created_at, updated_at`

func scanCustomer(row interface{ Scan(...any) error }) (*crm.Customer, error) {
	var c crm.Customer
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (st *CustomerStore) Create(ctx context.Context, c *crm.Customer) error {
	if st.db == nil {
		return errors.New("database connection unavailable")
	}
	err := st.db.QueryRowContext(ctx, `
		insert into customers (id, first_name, last_name, email, phone, address)
		values ($1, $2, $3, nullif($4,''), $5, $6)
		returning created_at, updated_at
	`, c.ID, c.FirstName, c.LastName, strings.ToLower(c.Email), nullIfEmpty(c.Phone), nullIfEmpty(c.Address)).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return crm.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (st *CustomerStore) Find(ctx context.Context, id string) (*crm.Customer, error) {
	if st.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	c, err := scanCustomer(st.db.QueryRowContext(ctx, `select `+customerColumns+` from customers where id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, crm.ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (st *CustomerStore) FindByEmail(ctx context.Context, email string) (*crm.Customer, error) {
	if st.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	c, err := scanCustomer(st.db.QueryRowContext(ctx, `select `+customerColumns+` from customers where email = lower($1)`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, crm.ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (st *CustomerStore) List(ctx context.Context, limit, offset int) ([]*crm.Customer, int, error) {
	if st.db == nil {
		return nil, 0, errors.New("database connection unavailable")
	}
	limit, offset = clampPage(limit, offset)

	var total int
	if err := st.db.QueryRowContext(ctx, `select count(*) from customers`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := st.db.QueryContext(ctx, `
		select `+customerColumns+`
		from customers
		order by created_at desc, id desc
		limit $1 offset $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var customers []*crm.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

func (st *CustomerStore) Update(ctx context.Context, id string, upd crm.CustomerUpdate) (*crm.Customer, error) {
	if st.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.FirstName != nil {
		sets = append(sets, fmt.Sprintf("first_name = $%d", idx))
		args = append(args, *upd.FirstName)
		idx++
	}
	if upd.LastName != nil {
		sets = append(sets, fmt.Sprintf("last_name = $%d", idx))
		args = append(args, *upd.LastName)
		idx++
	}
	if upd.Email != nil {
		sets = append(sets, fmt.Sprintf("email = nullif(lower($%d),'')", idx))
		args = append(args, *upd.Email)
		idx++
	}
	if upd.Phone != nil {
		sets = append(sets, fmt.Sprintf("phone = $%d", idx))
		args = append(args, nullIfEmpty(*upd.Phone))
		idx++
	}
	if upd.Address != nil {
		sets = append(sets, fmt.Sprintf("address = $%d", idx))
		args = append(args, nullIfEmpty(*upd.Address))
		idx++
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update customers set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := st.db.ExecContext(ctx, query, args...)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
				return nil, crm.ErrEmailTaken
			}
			return nil, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if aff == 0 {
			return nil, crm.ErrCustomerNotFound
		}
	}
	return st.Find(ctx, id)
}

func (st *CustomerStore) Delete(ctx context.Context, id string) error {
	if st.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := st.db.ExecContext(ctx, `delete from customers where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return crm.ErrCustomerNotFound
	}
	return nil
}

func (st *CustomerStore) Recent(ctx context.Context, n int) ([]*crm.Customer, error) {
	if st.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	if n <= 0 || n > 100 {
		n = 5
	}
	rows, err := st.db.QueryContext(ctx, `
		select `+customerColumns+`
		from customers
		order by created_at desc, id desc
		limit $1
	`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []*crm.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}
