package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"smallcrm.org/internal/crm"
)

// OrderStore implements crm.OrderStore on the shared pool.
type OrderStore struct {
	db *sql.DB
}

var _ crm.OrderStore = (*OrderStore)(nil)

// Orders returns the order store view of the pool.
func (s *Store) Orders() *OrderStore { return &OrderStore{db: s.db} }

const orderColumns = `id, product_id, customer_id, coalesce(created_by,''), quantity, unit_price, total_amount, status, order_date, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*crm.Order, error) {
	var o crm.Order
	var status string
	if err := row.Scan(&o.ID, &o.ProductID, &o.CustomerID, &o.CreatedBy, &o.Quantity, &o.UnitPrice, &o.TotalAmount, &status, &o.OrderDate, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = crm.OrderStatus(status)
	return &o, nil
}

// Place writes the order and its sale record while decrementing stock in a
// single transaction. Stock is re-checked under a row lock so concurrent
// orders cannot oversell.
func (st *OrderStore) Place(ctx context.Context, o *crm.Order, sale *crm.Sale) error {
	if st.db == nil {
		return errors.New("database connection unavailable")
	}

	tx, err := st.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Lock the product row, re-check stock under the lock
	var stock int
	if err := tx.QueryRowContext(ctx, `
		select stock from products where id = $1 for update
	`, o.ProductID).Scan(&stock); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return crm.ErrProductNotFound
		}
		return err
	}
	if stock < o.Quantity {
		return crm.ErrInsufficientStock
	}

	if _, err := tx.ExecContext(ctx, `
		update products set stock = stock - $2 where id = $1
	`, o.ProductID, o.Quantity); err != nil {
		return err
	}

	if err := tx.QueryRowContext(ctx, `
		insert into orders (id, product_id, customer_id, created_by, quantity, unit_price, total_amount, status, order_date)
		values ($1, $2, $3, nullif($4,''), $5, $6, $7, $8, $9)
		returning created_at, updated_at
	`, o.ID, o.ProductID, o.CustomerID, o.CreatedBy, o.Quantity, o.UnitPrice, o.TotalAmount, string(o.Status), o.OrderDate).
		Scan(&o.CreatedAt, &o.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return crm.ErrCustomerNotFound
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		insert into sales (id, product_id, sold_date, quantity, revenue)
		values ($1, $2, $3, $4, $5)
	`, sale.ID, sale.ProductID, sale.SoldDate, sale.Quantity, sale.Revenue); err != nil {
		return err
	}

	return tx.Commit()
}

func (st *OrderStore) Find(ctx context.Context, id string) (*crm.Order, error) {
	if st.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	o, err := scanOrder(st.db.QueryRowContext(ctx, `select `+orderColumns+` from orders where id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, crm.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (st *OrderStore) List(ctx context.Context, limit, offset int) ([]*crm.Order, int, error) {
	return st.list(ctx, ``, nil, limit, offset)
}

func (st *OrderStore) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*crm.Order, int, error) {
	return st.list(ctx, `where customer_id = $3`, []any{customerID}, limit, offset)
}

func (st *OrderStore) ListByCreator(ctx context.Context, username string, limit, offset int) ([]*crm.Order, int, error) {
	return st.list(ctx, `where created_by = $3`, []any{username}, limit, offset)
}

func (st *OrderStore) list(ctx context.Context, where string, extra []any, limit, offset int) ([]*crm.Order, int, error) {
	if st.db == nil {
		return nil, 0, errors.New("database connection unavailable")
	}
	limit, offset = clampPage(limit, offset)

	countQuery := `select count(*) from orders`
	if where != "" {
		// The filter placeholder is $3 in the page query and $1 here.
		countQuery += ` ` + strings.Replace(where, "$3", "$1", 1)
	}
	var total int
	if err := st.db.QueryRowContext(ctx, countQuery, extra...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args := append([]any{limit, offset}, extra...)
	rows, err := st.db.QueryContext(ctx, `
		select `+orderColumns+`
		from orders `+where+`
		order by created_at desc, id desc
		limit $1 offset $2
	`, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []*crm.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (st *OrderStore) UpdateStatus(ctx context.Context, id string, status crm.OrderStatus) (*crm.Order, error) {
	if st.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	res, err := st.db.ExecContext(ctx, `
		update orders set status = $2, updated_at = now() where id = $1
	`, id, string(status))
	if err != nil {
		return nil, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if aff == 0 {
		return nil, crm.ErrOrderNotFound
	}
	return st.Find(ctx, id)
}
