package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/mall/internal/domain"
	"github.com/vladislavdragonenkov/mall/internal/storage/memory"
)

func newService(t *testing.T) (*Service, domain.ProductRepository) {
	t.Helper()
	store := memory.NewStore()
	products := memory.NewProductRepository(store)
	return NewService(memory.NewCartRepository(store), products, nil), products
}

func seedProduct(t *testing.T, products domain.ProductRepository, stock int32) int64 {
	t.Helper()
	id, err := products.Create(context.Background(), domain.Product{
		Name:          "ssd drive",
		Price:         decimal.RequireFromString("79.90"),
		StockQuantity: stock,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return id
}

func TestAdd_StockCeiling(t *testing.T) {
	svc, products := newService(t)
	productID := seedProduct(t, products, 3)

	if err := svc.Add(context.Background(), 1, productID, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	// В корзине уже 2, добавление ещё 2 превысило бы остаток 3.
	if err := svc.Add(context.Background(), 1, productID, 2); !errors.Is(err, domain.ErrStockCeilingExceeded) {
		t.Fatalf("expected ErrStockCeilingExceeded, got %v", err)
	}
	if err := svc.Add(context.Background(), 1, productID, 1); err != nil {
		t.Fatalf("add up to stock must pass: %v", err)
	}
}

func TestAdd_UnknownProduct(t *testing.T) {
	svc, _ := newService(t)

	if err := svc.Add(context.Background(), 1, 99, 1); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestList_SubtotalsUseCurrentPrice(t *testing.T) {
	svc, products := newService(t)
	productID := seedProduct(t, products, 10)

	if err := svc.Add(context.Background(), 1, productID, 3); err != nil {
		t.Fatalf("add: %v", err)
	}

	views, err := svc.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 view, got %d", len(views))
	}
	if !views[0].Subtotal.Equal(decimal.RequireFromString("239.70")) {
		t.Fatalf("unexpected subtotal: %s", views[0].Subtotal)
	}
}

func TestUpdateQuantity_OwnershipAndCeiling(t *testing.T) {
	svc, products := newService(t)
	productID := seedProduct(t, products, 5)

	if err := svc.Add(context.Background(), 1, productID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	views, err := svc.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	lineID := views[0].LineID

	// Чужая строка неотличима от несуществующей.
	if err := svc.UpdateQuantity(context.Background(), 2, lineID, 2); !errors.Is(err, domain.ErrCartLineNotFound) {
		t.Fatalf("expected ErrCartLineNotFound, got %v", err)
	}

	if err := svc.UpdateQuantity(context.Background(), 1, lineID, 6); !errors.Is(err, domain.ErrStockCeilingExceeded) {
		t.Fatalf("expected ErrStockCeilingExceeded, got %v", err)
	}

	if err := svc.UpdateQuantity(context.Background(), 1, lineID, 5); err != nil {
		t.Fatalf("update: %v", err)
	}
	views, _ = svc.List(context.Background(), 1)
	if views[0].Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", views[0].Quantity)
	}
}

func TestRemove(t *testing.T) {
	svc, products := newService(t)
	productID := seedProduct(t, products, 5)

	if err := svc.Add(context.Background(), 1, productID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	views, _ := svc.List(context.Background(), 1)
	lineID := views[0].LineID

	if err := svc.Remove(context.Background(), 2, lineID); !errors.Is(err, domain.ErrCartLineNotFound) {
		t.Fatalf("foreign remove must fail, got %v", err)
	}
	if err := svc.Remove(context.Background(), 1, lineID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	views, _ = svc.List(context.Background(), 1)
	if len(views) != 0 {
		t.Fatalf("expected empty cart, got %d", len(views))
	}
}
