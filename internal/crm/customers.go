package crm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"smallcrm.org/internal/auth"
	"smallcrm.org/internal/ids"
)

// Activity action codes emitted by customer management.
const (
	ActionCustomerCreated = "CUSTOMER_CREATED"
	ActionCustomerUpdated = "CUSTOMER_UPDATED"
	ActionCustomerDeleted = "CUSTOMER_DELETED"
)

// Customers manages the customer directory.
type Customers struct {
	store    CustomerStore
	activity auth.Recorder
}

// NewCustomers constructs the customer service.
func NewCustomers(store CustomerStore, activity auth.Recorder) (*Customers, error) {
	if store == nil {
		return nil, errors.New("crm: customer store is required")
	}
	if activity == nil {
		return nil, errors.New("crm: activity recorder is required")
	}
	return &Customers{store: store, activity: activity}, nil
}

// Create registers a customer. Email, when present, must be unique.
func (c *Customers) Create(ctx context.Context, cust *Customer) (*Customer, error) {
	cust.FirstName = strings.TrimSpace(cust.FirstName)
	cust.LastName = strings.TrimSpace(cust.LastName)
	cust.Email = strings.TrimSpace(strings.ToLower(cust.Email))
	if cust.FirstName == "" || cust.LastName == "" {
		return nil, fmt.Errorf("%w: first and last name are required", ErrInvalidInput)
	}
	if cust.Email != "" {
		if existing, err := c.store.FindByEmail(ctx, cust.Email); err == nil && existing != nil {
			return nil, ErrEmailTaken
		}
	}
	cust.ID = ids.New()
	if err := c.store.Create(ctx, cust); err != nil {
		return nil, err
	}
	c.activity.Record(ctx, auth.ActorFromContext(ctx), ActionCustomerCreated,
		fmt.Sprintf("customer %s %s created", cust.FirstName, cust.LastName))
	return cust, nil
}

// Get returns a customer by id.
func (c *Customers) Get(ctx context.Context, id string) (*Customer, error) {
	return c.store.Find(ctx, id)
}

// List returns a page of customers plus the total count.
func (c *Customers) List(ctx context.Context, limit, offset int) ([]*Customer, int, error) {
	return c.store.List(ctx, limit, offset)
}

// Update applies a partial update, keeping email unique across customers.
func (c *Customers) Update(ctx context.Context, id string, upd CustomerUpdate) (*Customer, error) {
	existing, err := c.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*upd.Email))
		if email != "" && email != existing.Email {
			if other, err := c.store.FindByEmail(ctx, email); err == nil && other != nil && other.ID != id {
				return nil, ErrEmailTaken
			}
		}
		upd.Email = &email
	}
	updated, err := c.store.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	c.activity.Record(ctx, auth.ActorFromContext(ctx), ActionCustomerUpdated,
		fmt.Sprintf("customer %s %s updated", updated.FirstName, updated.LastName))
	return updated, nil
}

// Delete removes a customer.
func (c *Customers) Delete(ctx context.Context, id string) error {
	cust, err := c.store.Find(ctx, id)
	if err != nil {
		return err
	}
	if err := c.store.Delete(ctx, id); err != nil {
		return err
	}
	c.activity.Record(ctx, auth.ActorFromContext(ctx), ActionCustomerDeleted,
		fmt.Sprintf("customer %s %s deleted", cust.FirstName, cust.LastName))
	return nil
}
