// Package crm holds the customer/product/order domain of the backend. The
// persistence contracts are defined here and implemented by internal/store/pg.
package crm

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCustomerNotFound  = errors.New("crm: customer not found")
	ErrProductNotFound   = errors.New("crm: product not found")
	ErrOrderNotFound     = errors.New("crm: order not found")
	ErrEmailTaken        = errors.New("crm: email already used")
	ErrInsufficientStock = errors.New("crm: insufficient stock")
	ErrInvalidStatus     = errors.New("crm: invalid order status")
	ErrInvalidInput      = errors.New("crm: invalid input")
)

// Customer is a person or company orders are placed for.
type Customer struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// CustomerUpdate carries optional fields for a partial customer update.
type CustomerUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
	Address   *string
}

// ProductStatusAvailable is the default status for new products.
const ProductStatusAvailable = "Available"

// Product is a sellable item with a tracked stock level.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Status      string  `json:"status"`
	Category    string  `json:"category,omitempty"`
	Description string  `json:"description,omitempty"`
}

// ProductUpdate carries optional fields for a partial product update.
type ProductUpdate struct {
	Name        *string
	Price       *float64
	Stock       *int
	Status      *string
	Category    *string
	Description *string
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
	OrderReturned   OrderStatus = "RETURNED"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled, OrderReturned:
		return true
	}
	return false
}

// Order records a purchase of a single product. UnitPrice is the product
// price at the time of ordering; later price changes do not affect it.
type Order struct {
	ID          string      `json:"id"`
	ProductID   string      `json:"product_id"`
	CustomerID  string      `json:"customer_id"`
	CreatedBy   string      `json:"created_by,omitempty"`
	Quantity    int         `json:"quantity"`
	UnitPrice   float64     `json:"unit_price"`
	TotalAmount float64     `json:"total_amount"`
	Status      OrderStatus `json:"status"`
	OrderDate   time.Time   `json:"order_date"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at,omitempty"`
}

// Sale is the revenue record written when an order is placed; dashboard
// aggregates are computed over sales.
type Sale struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	SoldDate  time.Time `json:"sold_date"`
	Quantity  int       `json:"quantity"`
	Revenue   float64   `json:"revenue"`
}

// CustomerStore persists customers.
type CustomerStore interface {
	Create(ctx context.Context, c *Customer) error
	Find(ctx context.Context, id string) (*Customer, error)
	FindByEmail(ctx context.Context, email string) (*Customer, error)
	List(ctx context.Context, limit, offset int) ([]*Customer, int, error)
	Update(ctx context.Context, id string, upd CustomerUpdate) (*Customer, error)
	Delete(ctx context.Context, id string) error
	Recent(ctx context.Context, n int) ([]*Customer, error)
}

// ProductStore persists products.
type ProductStore interface {
	Create(ctx context.Context, p *Product) error
	Find(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, limit, offset int) ([]*Product, int, error)
	Update(ctx context.Context, id string, upd ProductUpdate) (*Product, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// OrderStore persists orders. Place must atomically re-check stock, decrement
// it, and write the order together with its sale record.
type OrderStore interface {
	Place(ctx context.Context, o *Order, s *Sale) error
	Find(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, limit, offset int) ([]*Order, int, error)
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*Order, int, error)
	ListByCreator(ctx context.Context, username string, limit, offset int) ([]*Order, int, error)
	UpdateStatus(ctx context.Context, id string, status OrderStatus) (*Order, error)
}

// SalesStats exposes the aggregate queries behind the dashboard.
type SalesStats interface {
	SumRevenue(ctx context.Context, start, end time.Time) (float64, error)
	CountSales(ctx context.Context, start, end time.Time) (int, error)
	AvgQuantity(ctx context.Context, start, end time.Time) (float64, error)
	MonthlyRevenue(ctx context.Context, year int) ([]MonthTotal, error)
	DailyRevenue(ctx context.Context, since time.Time) ([]DayTotal, error)
	RevenueByProduct(ctx context.Context) ([]ProductTotal, error)
}

// MonthTotal is one bar of the monthly revenue chart.
type MonthTotal struct {
	Month int     `json:"-"`
	Total float64 `json:"total"`
}

// DayTotal is one point of the daily revenue chart.
type DayTotal struct {
	Date  time.Time `json:"-"`
	Total float64   `json:"total"`
}

// ProductTotal is one slice of the revenue-by-product chart.
type ProductTotal struct {
	Product string  `json:"product"`
	Total   float64 `json:"total"`
}
