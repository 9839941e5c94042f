package crm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"smallcrm.org/internal/auth"
	"smallcrm.org/internal/ids"
)

// Activity action codes emitted by product management.
const (
	ActionProductCreated = "PRODUCT_CREATED"
	ActionProductUpdated = "PRODUCT_UPDATED"
	ActionProductDeleted = "PRODUCT_DELETED"
)

// Products manages the product catalog.
type Products struct {
	store    ProductStore
	activity auth.Recorder
}

// NewProducts constructs the product service.
func NewProducts(store ProductStore, activity auth.Recorder) (*Products, error) {
	if store == nil {
		return nil, errors.New("crm: product store is required")
	}
	if activity == nil {
		return nil, errors.New("crm: activity recorder is required")
	}
	return &Products{store: store, activity: activity}, nil
}

// Create adds a product to the catalog. Status defaults to "Available".
func (p *Products) Create(ctx context.Context, prod *Product) (*Product, error) {
	prod.Name = strings.TrimSpace(prod.Name)
	if prod.Name == "" {
		return nil, fmt.Errorf("%w: product name is required", ErrInvalidInput)
	}
	if prod.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}
	if prod.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must be >= 0", ErrInvalidInput)
	}
	if strings.TrimSpace(prod.Status) == "" {
		prod.Status = ProductStatusAvailable
	}
	prod.ID = ids.New()
	if err := p.store.Create(ctx, prod); err != nil {
		return nil, err
	}
	p.activity.Record(ctx, auth.ActorFromContext(ctx), ActionProductCreated,
		fmt.Sprintf("product %q created", prod.Name))
	return prod, nil
}

// Get returns a product by id.
func (p *Products) Get(ctx context.Context, id string) (*Product, error) {
	return p.store.Find(ctx, id)
}

// List returns a page of products plus the total count.
func (p *Products) List(ctx context.Context, limit, offset int) ([]*Product, int, error) {
	return p.store.List(ctx, limit, offset)
}

// Update applies a partial update.
func (p *Products) Update(ctx context.Context, id string, upd ProductUpdate) (*Product, error) {
	if upd.Price != nil && *upd.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}
	if upd.Stock != nil && *upd.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must be >= 0", ErrInvalidInput)
	}
	updated, err := p.store.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	p.activity.Record(ctx, auth.ActorFromContext(ctx), ActionProductUpdated,
		fmt.Sprintf("product %q updated", updated.Name))
	return updated, nil
}

// Delete removes a product from the catalog.
func (p *Products) Delete(ctx context.Context, id string) error {
	prod, err := p.store.Find(ctx, id)
	if err != nil {
		return err
	}
	if err := p.store.Delete(ctx, id); err != nil {
		return err
	}
	p.activity.Record(ctx, auth.ActorFromContext(ctx), ActionProductDeleted,
		fmt.Sprintf("product %q deleted", prod.Name))
	return nil
}
