package crm

import (
	"context"
	"testing"
	"time"

	"smallcrm.org/internal/activity"
)

type fakeSalesStats struct {
	revenue map[string]float64
	sold    map[string]int
	avg     map[string]float64
	months  []MonthTotal
	days    []DayTotal
	byProd  []ProductTotal
}

func rangeKey(start, end time.Time) string {
	return start.Format("2006-01-02") + ".." + end.Format("2006-01-02")
}

func (f *fakeSalesStats) SumRevenue(ctx context.Context, start, end time.Time) (float64, error) {
	return f.revenue[rangeKey(start, end)], nil
}

func (f *fakeSalesStats) CountSales(ctx context.Context, start, end time.Time) (int, error) {
	return f.sold[rangeKey(start, end)], nil
}

func (f *fakeSalesStats) AvgQuantity(ctx context.Context, start, end time.Time) (float64, error) {
	return f.avg[rangeKey(start, end)], nil
}

func (f *fakeSalesStats) MonthlyRevenue(ctx context.Context, year int) ([]MonthTotal, error) {
	return f.months, nil
}

func (f *fakeSalesStats) DailyRevenue(ctx context.Context, since time.Time) ([]DayTotal, error) {
	return f.days, nil
}

func (f *fakeSalesStats) RevenueByProduct(ctx context.Context) ([]ProductTotal, error) {
	return f.byProd, nil
}

type fakeActivityStore struct {
	entries []*activity.Entry
}

func (f *fakeActivityStore) Append(ctx context.Context, e *activity.Entry) error {
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeActivityStore) List(ctx context.Context, limit, offset int) ([]*activity.Entry, int, error) {
	return f.entries, len(f.entries), nil
}

func (f *fakeActivityStore) Recent(ctx context.Context, n int) ([]*activity.Entry, error) {
	if n > len(f.entries) {
		n = len(f.entries)
	}
	return f.entries[:n], nil
}

func TestPercentChange(t *testing.T) {
	tests := []struct {
		name     string
		previous float64
		current  float64
		want     float64
	}{
		{"growth", 100, 150, 50},
		{"decline", 200, 100, -50},
		{"flat", 80, 80, 0},
		{"from zero to something", 0, 40, 100},
		{"from zero to zero", 0, 0, 0},
		{"to zero", 60, 0, -100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := percentChange(tt.previous, tt.current); got != tt.want {
				t.Fatalf("percentChange(%v, %v) = %v, want %v", tt.previous, tt.current, got, tt.want)
			}
		})
	}
}

func TestGetStats(t *testing.T) {
	// Fixed "today": June 10th. Current window is June 1-10, previous is all
	// of May.
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	curKey := rangeKey(
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), now)
	prevKey := rangeKey(
		time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC))

	sales := &fakeSalesStats{
		revenue: map[string]float64{curKey: 3000, prevKey: 2000},
		sold:    map[string]int{curKey: 30, prevKey: 40},
		avg:     map[string]float64{curKey: 3, prevKey: 0},
	}
	products := &fakeProductStore{products: map[string]*Product{
		"p1": {ID: "p1"}, "p2": {ID: "p2"},
	}}
	customers := &fakeCustomerStore{customers: map[string]*Customer{}}

	d, err := NewDashboard(sales, products, customers, &fakeActivityStore{},
		WithDashboardClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewDashboard: %v", err)
	}

	stats, err := d.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalProducts != 2 {
		t.Fatalf("total products: got %d", stats.TotalProducts)
	}
	if stats.ProductRevenue != 3000 || stats.ProductsSold != 30 {
		t.Fatalf("current figures: %+v", stats)
	}
	if stats.RevenueChange != 50 {
		t.Fatalf("revenue change: got %v, want 50", stats.RevenueChange)
	}
	if stats.SoldChange != -25 {
		t.Fatalf("sold change: got %v, want -25", stats.SoldChange)
	}
	// Previous average was zero, current is positive.
	if stats.AvgSalesChange != 100 {
		t.Fatalf("avg change: got %v, want 100", stats.AvgSalesChange)
	}
}

func TestBarDataLabels(t *testing.T) {
	sales := &fakeSalesStats{
		months: []MonthTotal{{Month: 1, Total: 10}, {Month: 2, Total: 0}, {Month: 12, Total: 99}},
	}
	d, err := NewDashboard(sales, &fakeProductStore{products: map[string]*Product{}},
		&fakeCustomerStore{customers: map[string]*Customer{}}, &fakeActivityStore{})
	if err != nil {
		t.Fatalf("NewDashboard: %v", err)
	}
	points, err := d.BarData(context.Background())
	if err != nil {
		t.Fatalf("BarData: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("points: got %d", len(points))
	}
	if points[0].Label != "Jan" || points[1].Label != "Feb" || points[2].Label != "Dec" {
		t.Fatalf("labels: %v", points)
	}
}
