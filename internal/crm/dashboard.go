package crm

import (
	"context"
	"errors"
	"time"

	"smallcrm.org/internal/activity"
)

// Stats is the headline dashboard block: current-month figures with
// month-over-month percentage changes.
type Stats struct {
	TotalProducts  int     `json:"total_products"`
	ProductRevenue float64 `json:"product_revenue"`
	ProductsSold   int     `json:"products_sold"`
	AvgSaleQty     float64 `json:"avg_sale_quantity"`
	RevenueChange  float64 `json:"revenue_change"`
	SoldChange     float64 `json:"sold_change"`
	AvgSalesChange float64 `json:"avg_sales_change"`
}

// ChartPoint is one labelled value of a dashboard chart.
type ChartPoint struct {
	Label string  `json:"label"`
	Total float64 `json:"total"`
}

// Dashboard computes the aggregate views served to administrators.
type Dashboard struct {
	sales      SalesStats
	products   ProductStore
	customers  CustomerStore
	activities activity.Store
	now        func() time.Time
}

// DashboardOption configures the dashboard service.
type DashboardOption func(*Dashboard)

// WithDashboardClock overrides the time source (useful for tests).
func WithDashboardClock(fn func() time.Time) DashboardOption {
	return func(d *Dashboard) {
		if fn != nil {
			d.now = fn
		}
	}
}

// NewDashboard constructs the dashboard service.
func NewDashboard(sales SalesStats, products ProductStore, customers CustomerStore, activities activity.Store, opts ...DashboardOption) (*Dashboard, error) {
	if sales == nil || products == nil || customers == nil || activities == nil {
		return nil, errors.New("crm: all dashboard stores are required")
	}
	d := &Dashboard{
		sales:      sales,
		products:   products,
		customers:  customers,
		activities: activities,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// GetStats aggregates the current month up to now against the full previous
// month.
func (d *Dashboard) GetStats(ctx context.Context) (Stats, error) {
	today := d.now().UTC()
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	prevMonthEnd := monthStart.AddDate(0, 0, -1)
	prevMonthStart := time.Date(prevMonthEnd.Year(), prevMonthEnd.Month(), 1, 0, 0, 0, 0, time.UTC)

	revenueCur, err := d.sales.SumRevenue(ctx, monthStart, today)
	if err != nil {
		return Stats{}, err
	}
	soldCur, err := d.sales.CountSales(ctx, monthStart, today)
	if err != nil {
		return Stats{}, err
	}
	avgCur, err := d.sales.AvgQuantity(ctx, monthStart, today)
	if err != nil {
		return Stats{}, err
	}
	revenuePrev, err := d.sales.SumRevenue(ctx, prevMonthStart, prevMonthEnd)
	if err != nil {
		return Stats{}, err
	}
	soldPrev, err := d.sales.CountSales(ctx, prevMonthStart, prevMonthEnd)
	if err != nil {
		return Stats{}, err
	}
	avgPrev, err := d.sales.AvgQuantity(ctx, prevMonthStart, prevMonthEnd)
	if err != nil {
		return Stats{}, err
	}
	totalProducts, err := d.products.Count(ctx)
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		TotalProducts:  totalProducts,
		ProductRevenue: revenueCur,
		ProductsSold:   soldCur,
		AvgSaleQty:     avgCur,
		RevenueChange:  percentChange(revenuePrev, revenueCur),
		SoldChange:     percentChange(float64(soldPrev), float64(soldCur)),
		AvgSalesChange: percentChange(avgPrev, avgCur),
	}, nil
}

// BarData returns monthly revenue for the current year.
func (d *Dashboard) BarData(ctx context.Context) ([]ChartPoint, error) {
	months, err := d.sales.MonthlyRevenue(ctx, d.now().UTC().Year())
	if err != nil {
		return nil, err
	}
	points := make([]ChartPoint, 0, len(months))
	for _, m := range months {
		points = append(points, ChartPoint{Label: shortMonth(m.Month), Total: m.Total})
	}
	return points, nil
}

// LineData returns daily revenue for the last 30 days.
func (d *Dashboard) LineData(ctx context.Context) ([]ChartPoint, error) {
	since := d.now().UTC().AddDate(0, 0, -30)
	days, err := d.sales.DailyRevenue(ctx, since)
	if err != nil {
		return nil, err
	}
	points := make([]ChartPoint, 0, len(days))
	for _, day := range days {
		points = append(points, ChartPoint{Label: day.Date.Format("2006-01-02"), Total: day.Total})
	}
	return points, nil
}

// PieData returns total revenue grouped by product.
func (d *Dashboard) PieData(ctx context.Context) ([]ChartPoint, error) {
	rows, err := d.sales.RevenueByProduct(ctx)
	if err != nil {
		return nil, err
	}
	points := make([]ChartPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, ChartPoint{Label: row.Product, Total: row.Total})
	}
	return points, nil
}

// RecentCustomers returns the n most recently added customers.
func (d *Dashboard) RecentCustomers(ctx context.Context, n int) ([]*Customer, error) {
	return d.customers.Recent(ctx, n)
}

// RecentActivities returns the n most recent audit entries.
func (d *Dashboard) RecentActivities(ctx context.Context, n int) ([]*activity.Entry, error) {
	return d.activities.Recent(ctx, n)
}

// percentChange follows the dashboard convention: from nothing to something
// is +100%, from something to nothing is -100%.
func percentChange(previous, current float64) float64 {
	if previous == 0 {
		if current != 0 {
			return 100
		}
		return 0
	}
	if current == 0 {
		return -100
	}
	return (current - previous) / previous * 100
}

func shortMonth(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return time.Month(m).String()[:3]
}
