package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"smallcrm.org/internal/crm"
)

// ProductStore implements crm.ProductStore on the shared pool.
type ProductStore struct {
	db *sql.DB
}

var _ crm.ProductStore = (*ProductStore)(nil)

// Products returns the product store view of the pool.
func (s *Store) Products() *ProductStore { return &ProductStore{db: s.db} }

const productColumns = `id, name, price, stock, status, coalesce(category,''), coalesce(description,'')`

func scanProduct(row interface{ Scan(...any) error }) (*crm.Product, error) {
	var p crm.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Status, &p.Category, &p.Description); err != nil {
		return nil, err
	}
	return &p, nil
}

func (st *ProductStore) Create(ctx context.Context, p *crm.Product) error {
	if st.db == nil {
		return errors.New("database connection unavailable")
	}
	_, err := st.db.ExecContext(ctx, `
		insert into products (id, name, price, stock, status, category, description)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.Name, p.Price, p.Stock, p.Status, nullIfEmpty(p.Category), nullIfEmpty(p.Description))
	return err
}

func (st *ProductStore) Find(ctx context.Context, id string) (*crm.Product, error) {
	if st.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	p, err := scanProduct(st.db.QueryRowContext(ctx, `select `+productColumns+` from products where id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, crm.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (st *ProductStore) List(ctx context.Context, limit, offset int) ([]*crm.Product, int, error) {
	if st.db == nil {
		return nil, 0, errors.New("database connection unavailable")
	}
	limit, offset = clampPage(limit, offset)

	var total int
	if err := st.db.QueryRowContext(ctx, `select count(*) from products`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := st.db.QueryContext(ctx, `
		select `+productColumns+`
		from products
		order by name asc, id asc
		limit $1 offset $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []*crm.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (st *ProductStore) Update(ctx context.Context, id string, upd crm.ProductUpdate) (*crm.Product, error) {
	if st.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", idx))
		args = append(args, *upd.Name)
		idx++
	}
	if upd.Price != nil {
		sets = append(sets, fmt.Sprintf("price = $%d", idx))
		args = append(args, *upd.Price)
		idx++
	}
	if upd.Stock != nil {
		sets = append(sets, fmt.Sprintf("stock = $%d", idx))
		args = append(args, *upd.Stock)
		idx++
	}
	if upd.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", idx))
		args = append(args, *upd.Status)
		idx++
	}
	if upd.Category != nil {
		sets = append(sets, fmt.Sprintf("category = $%d", idx))
		args = append(args, nullIfEmpty(*upd.Category))
		idx++
	}
	if upd.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", idx))
		args = append(args, nullIfEmpty(*upd.Description))
		idx++
	}
	if len(sets) > 0 {
		query := fmt.Sprintf(`update products set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := st.db.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if aff == 0 {
			return nil, crm.ErrProductNotFound
		}
	}
	return st.Find(ctx, id)
}

func (st *ProductStore) Delete(ctx context.Context, id string) error {
	if st.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := st.db.ExecContext(ctx, `delete from products where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return crm.ErrProductNotFound
	}
	return nil
}

func (st *ProductStore) Count(ctx context.Context) (int, error) {
	if st.db == nil {
		return 0, errors.New("database connection unavailable")
	}
	var n int
	if err := st.db.QueryRowContext(ctx, `select count(*) from products`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
