package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"smallcrm.org/internal/crm"
)

// SalesStore implements crm.SalesStats with SQL aggregates over the sales
// table.
type SalesStore struct {
	db *sql.DB
}

var _ crm.SalesStats = (*SalesStore)(nil)

// Sales returns the sales aggregate view of the pool.
func (s *Store) Sales() *SalesStore { return &SalesStore{db: s.db} }

func (st *SalesStore) SumRevenue(ctx context.Context, start, end time.Time) (float64, error) {
	if st.db == nil {
		return 0, errors.New("database connection unavailable")
	}
	var total float64
	err := st.db.QueryRowContext(ctx, `
		select coalesce(sum(revenue), 0)
		from sales
		where sold_date >= $1 and sold_date <= $2
	`, start, end).Scan(&total)
	return total, err
}

// CountSales counts sale transactions, not items; per-sale quantity is
// reported by AvgQuantity.
func (st *SalesStore) CountSales(ctx context.Context, start, end time.Time) (int, error) {
	if st.db == nil {
		return 0, errors.New("database connection unavailable")
	}
	var n int
	err := st.db.QueryRowContext(ctx, `
		select count(*)
		from sales
		where sold_date >= $1 and sold_date <= $2
	`, start, end).Scan(&n)
	return n, err
}

func (st *SalesStore) AvgQuantity(ctx context.Context, start, end time.Time) (float64, error) {
	if st.db == nil {
		return 0, errors.New("database connection unavailable")
	}
	var avg float64
	err := st.db.QueryRowContext(ctx, `
		select coalesce(avg(quantity), 0)
		from sales
		where sold_date >= $1 and sold_date <= $2
	`, start, end).Scan(&avg)
	return avg, err
}

func (st *SalesStore) MonthlyRevenue(ctx context.Context, year int) ([]crm.MonthTotal, error) {
	if st.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := st.db.QueryContext(ctx, `
		select extract(month from sold_date)::int as month, coalesce(sum(revenue), 0)
		from sales
		where extract(year from sold_date) = $1
		group by month
		order by month
	`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byMonth := map[int]float64{}
	for rows.Next() {
		var month int
		var total float64
		if err := rows.Scan(&month, &total); err != nil {
			return nil, err
		}
		byMonth[month] = total
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Months without sales still appear in the chart as zero.
	result := make([]crm.MonthTotal, 0, 12)
	for m := 1; m <= 12; m++ {
		result = append(result, crm.MonthTotal{Month: m, Total: byMonth[m]})
	}
	return result, nil
}

func (st *SalesStore) DailyRevenue(ctx context.Context, since time.Time) ([]crm.DayTotal, error) {
	if st.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := st.db.QueryContext(ctx, `
		select sold_date, coalesce(sum(revenue), 0)
		from sales
		where sold_date >= $1
		group by sold_date
		order by sold_date
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []crm.DayTotal
	for rows.Next() {
		var d crm.DayTotal
		if err := rows.Scan(&d.Date, &d.Total); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (st *SalesStore) RevenueByProduct(ctx context.Context) ([]crm.ProductTotal, error) {
	if st.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := st.db.QueryContext(ctx, `
		select p.name, coalesce(sum(s.revenue), 0) as total
		from sales s
		join products p on p.id = s.product_id
		group by p.name
		order by total desc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []crm.ProductTotal
	for rows.Next() {
		var pt crm.ProductTotal
		if err := rows.Scan(&pt.Product, &pt.Total); err != nil {
			return nil, err
		}
		result = append(result, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
