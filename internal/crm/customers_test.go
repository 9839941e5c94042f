package crm

import (
	"context"
	"errors"
	"testing"
)

func TestCustomersCreate(t *testing.T) {
	store := &fakeCustomerStore{customers: map[string]*Customer{}}
	rec := &testRecorder{}
	svc, err := NewCustomers(store, rec)
	if err != nil {
		t.Fatalf("NewCustomers: %v", err)
	}

	c, err := svc.Create(context.Background(), &Customer{
		FirstName: "Dana", LastName: "Reed", Email: "Dana@Example.COM",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.ID == "" {
		t.Fatal("customer has no id")
	}
	if c.Email != "dana@example.com" {
		t.Fatalf("email not normalized: %q", c.Email)
	}
	if len(rec.events) != 1 || rec.events[0] != ActionCustomerCreated {
		t.Fatalf("activity: %v", rec.events)
	}

	if _, err := svc.Create(context.Background(), &Customer{
		FirstName: "Other", LastName: "Person", Email: "dana@example.com",
	}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate email: got %v", err)
	}
	if _, err := svc.Create(context.Background(), &Customer{Email: "x@example.com"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing name: got %v", err)
	}
}

func TestProductsValidation(t *testing.T) {
	store := &fakeProductStore{products: map[string]*Product{}}
	svc, err := NewProducts(store, &testRecorder{})
	if err != nil {
		t.Fatalf("NewProducts: %v", err)
	}

	if _, err := svc.Create(context.Background(), &Product{Name: "Widget", Price: 0}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero price: got %v", err)
	}
	if _, err := svc.Create(context.Background(), &Product{Name: "Widget", Price: 10, Stock: -1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("negative stock: got %v", err)
	}

	p, err := svc.Create(context.Background(), &Product{Name: "Widget", Price: 10})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Status != ProductStatusAvailable {
		t.Fatalf("default status: got %q", p.Status)
	}
}
