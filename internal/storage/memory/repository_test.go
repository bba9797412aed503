package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/mall/internal/domain"
)

func TestCartRepository_AddLineMergesQuantity(t *testing.T) {
	store := NewStore()
	carts := NewCartRepository(store)

	if err := carts.AddLine(context.Background(), 1, 7, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := carts.AddLine(context.Background(), 1, 7, 3); err != nil {
		t.Fatalf("add again: %v", err)
	}

	lines, err := carts.ListByCustomer(context.Background(), 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected merged line, got %d lines", len(lines))
	}
	if lines[0].Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %d", lines[0].Quantity)
	}
}

func TestCartRepository_AddLineRejectsNonPositiveQuantity(t *testing.T) {
	store := NewStore()
	carts := NewCartRepository(store)

	if err := carts.AddLine(context.Background(), 1, 7, 0); !errors.Is(err, domain.ErrLineQtyInvalid) {
		t.Fatalf("expected ErrLineQtyInvalid, got %v", err)
	}
}

func TestProductRepository_SoftDeleteHidesProduct(t *testing.T) {
	store := NewStore()
	products := NewProductRepository(store)

	id, err := products.Create(context.Background(), domain.Product{
		Name:  "usb hub",
		Price: decimal.RequireFromString("12.00"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := products.SoftDelete(context.Background(), id); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	if _, err := products.Get(context.Background(), id); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	list, err := products.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("deleted product visible in listing: %d", len(list))
	}
}

func TestOrderRepository_DeleteChecksOwnership(t *testing.T) {
	store := NewStore()
	store.orders[1] = domain.Order{ID: 1, CustomerID: 5, Status: domain.OrderStatusPending}
	store.orderSeq = 1

	orders := NewOrderRepository(store)

	if _, err := orders.Delete(context.Background(), 1, 6, false); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if _, err := orders.Get(context.Background(), 1); err != nil {
		t.Fatalf("order must survive denied delete: %v", err)
	}

	affected, err := orders.Delete(context.Background(), 1, 5, false)
	if err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if !affected {
		t.Fatal("expected owner delete to affect the order")
	}

	affected, err = orders.Delete(context.Background(), 1, 5, false)
	if err != nil {
		t.Fatalf("repeated delete: %v", err)
	}
	if affected {
		t.Fatal("repeated delete must be a no-op")
	}
}

func TestCustomerRepository_UsernameUnique(t *testing.T) {
	store := NewStore()
	customers := NewCustomerRepository(store)

	if _, err := customers.Create(context.Background(), domain.Customer{Username: "alice"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := customers.Create(context.Background(), domain.Customer{Username: "alice"}); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	taken, err := customers.UsernameTaken(context.Background(), "alice")
	if err != nil {
		t.Fatalf("username taken: %v", err)
	}
	if !taken {
		t.Fatal("expected username to be taken")
	}
}

func TestCustomerRepository_UpdateProfile(t *testing.T) {
	store := NewStore()
	customers := NewCustomerRepository(store)

	id, err := customers.Create(context.Background(), domain.Customer{
		Username: "alice",
		Email:    "old@example.com",
		Phone:    "111",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := customers.UpdateProfile(context.Background(), id, "new@example.com", "222"); err != nil {
		t.Fatalf("update profile: %v", err)
	}

	customer, err := customers.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if customer.Email != "new@example.com" || customer.Phone != "222" {
		t.Fatalf("profile not applied: %+v", customer)
	}
	if customer.Username != "alice" {
		t.Fatalf("username must not change, got %s", customer.Username)
	}

	if err := customers.UpdateProfile(context.Background(), 404, "x@example.com", ""); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
}
