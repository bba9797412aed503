package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/mall/internal/domain"
	"github.com/vladislavdragonenkov/mall/internal/storage/memory"
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return NewService(memory.NewOrderRepository(store), memory.NewOutboxRepository(store), nil), store
}

func placeOrder(t *testing.T, store *memory.Store, customerID int64) int64 {
	t.Helper()

	products := memory.NewProductRepository(store)
	carts := memory.NewCartRepository(store)
	productID, err := products.Create(context.Background(), domain.Product{
		Name:          "webcam",
		Price:         decimal.RequireFromString("30.00"),
		StockQuantity: 5,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if err := carts.AddLine(context.Background(), customerID, productID, 1); err != nil {
		t.Fatalf("add line: %v", err)
	}
	lines, err := carts.ListByCustomer(context.Background(), customerID)
	if err != nil {
		t.Fatalf("list cart: %v", err)
	}

	cs := memory.NewCheckoutStore(store, nil)
	var orderID int64
	err = cs.WithinTx(context.Background(), func(tx domain.CheckoutTx) error {
		if _, err := tx.ReserveStock(context.Background(), productID, 1); err != nil {
			return err
		}
		orderID, err = tx.InsertOrderHeader(context.Background(), domain.Order{
			CustomerID:      customerID,
			TotalAmount:     decimal.RequireFromString("30.00"),
			ShippingAddress: "Arbat 12",
		})
		if err != nil {
			return err
		}
		if err := tx.InsertOrderLines(context.Background(), orderID, []domain.OrderLine{{
			ProductID:   productID,
			ProductName: "webcam",
			UnitPrice:   decimal.RequireFromString("30.00"),
			Quantity:    1,
		}}); err != nil {
			return err
		}
		_, err = tx.DeleteCartLine(context.Background(), lines[0].ID)
		return err
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}

	return orderID
}

func TestGet_Authorization(t *testing.T) {
	svc, store := newService(t)
	orderID := placeOrder(t, store, 5)

	if _, err := svc.Get(context.Background(), orderID, 5, false); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if _, err := svc.Get(context.Background(), orderID, 6, false); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if _, err := svc.Get(context.Background(), orderID, 6, true); err != nil {
		t.Fatalf("admin get: %v", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	svc, store := newService(t)
	orderID := placeOrder(t, store, 5)

	if err := svc.UpdateStatus(context.Background(), orderID, domain.OrderStatusPaid); err != nil {
		t.Fatalf("update status: %v", err)
	}
	order, err := svc.Get(context.Background(), orderID, 5, false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if order.Status != domain.OrderStatusPaid {
		t.Fatalf("expected PAID, got %s", order.Status)
	}

	// Повторное применение того же статуса безвредно.
	if err := svc.UpdateStatus(context.Background(), orderID, domain.OrderStatusPaid); err != nil {
		t.Fatalf("repeated update: %v", err)
	}

	if err := svc.UpdateStatus(context.Background(), 999, domain.OrderStatusPaid); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestDelete_AuthzBeforeWrite(t *testing.T) {
	svc, store := newService(t)
	orderID := placeOrder(t, store, 5)

	if err := svc.Delete(context.Background(), orderID, 6, false); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	// Заказ пережил отклонённое удаление.
	if _, err := svc.Get(context.Background(), orderID, 5, false); err != nil {
		t.Fatalf("order must survive denied delete: %v", err)
	}

	if err := svc.Delete(context.Background(), orderID, 5, false); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if err := svc.Delete(context.Background(), orderID, 5, false); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound on missing order, got %v", err)
	}
}

func TestStatusAndDeleteEmitOutboxEvents(t *testing.T) {
	store := memory.NewStore()
	outbox := memory.NewOutboxRepository(store)
	svc := NewService(memory.NewOrderRepository(store), outbox, nil)
	orderID := placeOrder(t, store, 5)

	if err := svc.UpdateStatus(context.Background(), orderID, domain.OrderStatusPaid); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if err := svc.Delete(context.Background(), orderID, 5, false); err != nil {
		t.Fatalf("delete: %v", err)
	}

	pending, err := outbox.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 events, got %d", len(pending))
	}
	if pending[0].EventType != "order.status_changed" || pending[1].EventType != "order.deleted" {
		t.Fatalf("unexpected event types: %s, %s", pending[0].EventType, pending[1].EventType)
	}
	for _, msg := range pending {
		if msg.ID == "" {
			t.Fatal("expected generated outbox id")
		}
		if msg.AggregateType != "order" {
			t.Fatalf("unexpected aggregate type: %s", msg.AggregateType)
		}
	}
}
