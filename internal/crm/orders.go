package crm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smallcrm.org/internal/auth"
	"smallcrm.org/internal/ids"
)

// Activity action codes emitted by order management.
const (
	ActionOrderCreated       = "ORDER_CREATED"
	ActionOrderStatusUpdated = "ORDER_STATUS_UPDATED"
)

// PlaceOrderInput carries a new-order request.
type PlaceOrderInput struct {
	ProductID  string
	CustomerID string
	Quantity   int
}

// Orders manages the order lifecycle. Orders are never deleted; they move
// through statuses instead.
type Orders struct {
	store     OrderStore
	products  ProductStore
	customers CustomerStore
	activity  auth.Recorder
	now       func() time.Time
}

// OrdersOption configures the order service.
type OrdersOption func(*Orders)

// WithOrdersClock overrides the time source (useful for tests).
func WithOrdersClock(fn func() time.Time) OrdersOption {
	return func(o *Orders) {
		if fn != nil {
			o.now = fn
		}
	}
}

// NewOrders constructs the order service.
func NewOrders(store OrderStore, products ProductStore, customers CustomerStore, activity auth.Recorder, opts ...OrdersOption) (*Orders, error) {
	if store == nil || products == nil || customers == nil {
		return nil, errors.New("crm: order, product and customer stores are required")
	}
	if activity == nil {
		return nil, errors.New("crm: activity recorder is required")
	}
	o := &Orders{
		store:     store,
		products:  products,
		customers: customers,
		activity:  activity,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Place creates an order for the authenticated caller, snapshotting the unit
// price, decrementing stock and writing the revenue record in one transaction.
func (o *Orders) Place(ctx context.Context, in PlaceOrderInput) (*Order, error) {
	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: authentication required to place an order", ErrInvalidInput)
	}
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}

	product, err := o.products.Find(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	customer, err := o.customers.Find(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}
	if product.Stock < in.Quantity {
		return nil, ErrInsufficientStock
	}

	now := o.now().UTC()
	order := &Order{
		ID:          ids.New(),
		ProductID:   product.ID,
		CustomerID:  customer.ID,
		CreatedBy:   principal.Username,
		Quantity:    in.Quantity,
		UnitPrice:   product.Price,
		TotalAmount: product.Price * float64(in.Quantity),
		Status:      OrderPending,
		OrderDate:   now.Truncate(24 * time.Hour),
		CreatedAt:   now,
	}
	sale := &Sale{
		ID:        ids.New(),
		ProductID: product.ID,
		SoldDate:  order.OrderDate,
		Quantity:  order.Quantity,
		Revenue:   order.TotalAmount,
	}
	// The store re-checks stock under a row lock; the read above only gives
	// an early answer without waiting on the lock.
	if err := o.store.Place(ctx, order, sale); err != nil {
		return nil, err
	}

	o.activity.Record(ctx, principal.Username, ActionOrderCreated,
		fmt.Sprintf("order %s created for customer %s %s", order.ID, customer.FirstName, customer.LastName))
	return order, nil
}

// Get returns an order by id.
func (o *Orders) Get(ctx context.Context, id string) (*Order, error) {
	return o.store.Find(ctx, id)
}

// List returns a page of all orders plus the total count.
func (o *Orders) List(ctx context.Context, limit, offset int) ([]*Order, int, error) {
	return o.store.List(ctx, limit, offset)
}

// ListByCustomer returns a page of one customer's orders.
func (o *Orders) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*Order, int, error) {
	return o.store.ListByCustomer(ctx, customerID, limit, offset)
}

// ListMine returns a page of orders created by the authenticated caller.
func (o *Orders) ListMine(ctx context.Context, limit, offset int) ([]*Order, int, error) {
	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return nil, 0, fmt.Errorf("%w: authentication required", ErrInvalidInput)
	}
	return o.store.ListByCreator(ctx, principal.Username, limit, offset)
}

// UpdateStatus moves an order to a new lifecycle state.
func (o *Orders) UpdateStatus(ctx context.Context, id string, status OrderStatus) (*Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	existing, err := o.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := o.store.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	o.activity.Record(ctx, auth.ActorFromContext(ctx), ActionOrderStatusUpdated,
		fmt.Sprintf("order %s status changed from %s to %s", id, existing.Status, status))
	return updated, nil
}
