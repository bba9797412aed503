package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/mall/internal/domain"
	"github.com/vladislavdragonenkov/mall/internal/storage/memory"
)

type fixture struct {
	store     *memory.Store
	coord     *Coordinator
	products  domain.ProductRepository
	carts     domain.CartRepository
	orders    domain.OrderRepository
	customers domain.CustomerRepository
	outbox    domain.OutboxRepository
	notifier  *captureNotifier
}

type captureNotifier struct {
	mu    sync.Mutex
	calls []domain.OrderNotification
	done  chan struct{}
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{done: make(chan struct{}, 8)}
}

func (n *captureNotifier) NotifyOrderCreated(_ context.Context, notification domain.OrderNotification) error {
	n.mu.Lock()
	n.calls = append(n.calls, notification)
	n.mu.Unlock()
	n.done <- struct{}{}
	return nil
}

func (n *captureNotifier) wait(t *testing.T) domain.OrderNotification {
	t.Helper()
	select {
	case <-n.done:
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not delivered")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[len(n.calls)-1]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	notifier := newCaptureNotifier()
	customers := memory.NewCustomerRepository(store)

	f := &fixture{
		store:     store,
		products:  memory.NewProductRepository(store),
		carts:     memory.NewCartRepository(store),
		orders:    memory.NewOrderRepository(store),
		customers: customers,
		outbox:    memory.NewOutboxRepository(store),
		notifier:  notifier,
	}
	f.coord = NewCoordinatorWithoutMetrics(
		memory.NewCheckoutStore(store, nil),
		customers,
		notifier,
		nil,
	)
	return f
}

// seedCustomerWithCart наполняет каталог и корзину сценарием из двух
// товаров: 10.50 x 2 + 4.00 x 1 = 25.00.
func seedCustomerWithCart(t *testing.T, f *fixture) (customerID int64, lineIDs []int64, productA, productB int64) {
	t.Helper()
	ctx := context.Background()

	customerID, err := f.customers.Create(ctx, domain.Customer{
		Username: "alice",
		Email:    "alice@example.com",
	})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	productA, err = f.products.Create(ctx, domain.Product{
		Name:          "wireless mouse",
		Price:         decimal.RequireFromString("10.50"),
		StockQuantity: 5,
	})
	if err != nil {
		t.Fatalf("create product A: %v", err)
	}
	productB, err = f.products.Create(ctx, domain.Product{
		Name:          "mouse pad",
		Price:         decimal.RequireFromString("4.00"),
		StockQuantity: 3,
	})
	if err != nil {
		t.Fatalf("create product B: %v", err)
	}

	if err := f.carts.AddLine(ctx, customerID, productA, 2); err != nil {
		t.Fatalf("add line A: %v", err)
	}
	if err := f.carts.AddLine(ctx, customerID, productB, 1); err != nil {
		t.Fatalf("add line B: %v", err)
	}

	lines, err := f.carts.ListByCustomer(ctx, customerID)
	if err != nil {
		t.Fatalf("list cart: %v", err)
	}
	for _, l := range lines {
		lineIDs = append(lineIDs, l.ID)
	}

	return customerID, lineIDs, productA, productB
}

func TestPlaceOrder_Success(t *testing.T) {
	f := newFixture(t)
	customerID, lineIDs, productA, productB := seedCustomerWithCart(t, f)

	order, err := f.coord.PlaceOrder(context.Background(), Request{
		CustomerID:      customerID,
		ShippingAddress: "Tverskaya 7, Moscow",
		CartLineIDs:     lineIDs,
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	if order.ID == 0 {
		t.Fatal("order id must be assigned")
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected PENDING, got %s", order.Status)
	}
	if !order.TotalAmount.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("expected total 25.00, got %s", order.TotalAmount)
	}

	persisted, err := f.orders.Get(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if len(persisted.Lines) != 2 {
		t.Fatalf("expected 2 order lines, got %d", len(persisted.Lines))
	}

	// Остатки списаны.
	a, _ := f.products.Get(context.Background(), productA)
	b, _ := f.products.Get(context.Background(), productB)
	if a.StockQuantity != 3 || b.StockQuantity != 2 {
		t.Fatalf("unexpected stock after checkout: A=%d B=%d", a.StockQuantity, b.StockQuantity)
	}

	// Корзина потреблена ровно один раз.
	cart, _ := f.carts.ListByCustomer(context.Background(), customerID)
	if len(cart) != 0 {
		t.Fatalf("cart must be consumed, %d lines left", len(cart))
	}

	// Событие стоит в outbox.
	pending, _ := f.outbox.PullPending(10)
	if len(pending) != 1 {
		t.Fatalf("expected 1 outbox event, got %d", len(pending))
	}
	if pending[0].EventType != "order.created" {
		t.Fatalf("unexpected event type: %s", pending[0].EventType)
	}

	// Уведомление отвязано от критического пути, но доставляется.
	n := f.notifier.wait(t)
	if n.OrderID != order.ID || n.Email != "alice@example.com" {
		t.Fatalf("unexpected notification: %+v", n)
	}
}

func TestPlaceOrder_ValidationErrors(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		req  Request
		want error
	}{
		{"missing customer", Request{ShippingAddress: "a", CartLineIDs: []int64{1}}, domain.ErrCustomerRequired},
		{"missing address", Request{CustomerID: 1, CartLineIDs: []int64{1}}, domain.ErrShippingAddressRequired},
		{"no lines selected", Request{CustomerID: 1, ShippingAddress: "a"}, domain.ErrNoCartLinesSelected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.coord.PlaceOrder(context.Background(), tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestPlaceOrder_EmptyCartSnapshotAborts(t *testing.T) {
	f := newFixture(t)
	customerID, lineIDs, productA, productB := seedCustomerWithCart(t, f)

	// После soft delete всех товаров снимок корзины пуст.
	if err := f.products.SoftDelete(context.Background(), productA); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if err := f.products.SoftDelete(context.Background(), productB); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	_, err := f.coord.PlaceOrder(context.Background(), Request{
		CustomerID:      customerID,
		ShippingAddress: "Tverskaya 7, Moscow",
		CartLineIDs:     lineIDs,
	})
	if !errors.Is(err, domain.ErrEmptyCartSnapshot) {
		t.Fatalf("expected ErrEmptyCartSnapshot, got %v", err)
	}

	orders, _ := f.orders.ListByCustomer(context.Background(), customerID)
	if len(orders) != 0 {
		t.Fatalf("no order must be created, got %d", len(orders))
	}
}

func TestPlaceOrder_InsufficientStockRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	customerID, lineIDs, productA, productB := seedCustomerWithCart(t, f)

	// Товар B заканчивается между резолвом и резервом.
	b, err := f.products.Get(context.Background(), productB)
	if err != nil {
		t.Fatalf("get product B: %v", err)
	}
	b.StockQuantity = 0
	if err := f.products.Update(context.Background(), b); err != nil {
		t.Fatalf("zero stock: %v", err)
	}

	_, err = f.coord.PlaceOrder(context.Background(), Request{
		CustomerID:      customerID,
		ShippingAddress: "Tverskaya 7, Moscow",
		CartLineIDs:     lineIDs,
	})
	if !domain.IsInsufficientStock(err) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	// Резерв товара A откатан, корзина и outbox нетронуты.
	a, _ := f.products.Get(context.Background(), productA)
	if a.StockQuantity != 5 {
		t.Fatalf("stock of A must be restored, got %d", a.StockQuantity)
	}
	cart, _ := f.carts.ListByCustomer(context.Background(), customerID)
	if len(cart) != 2 {
		t.Fatalf("cart must be intact, got %d lines", len(cart))
	}
	orders, _ := f.orders.ListByCustomer(context.Background(), customerID)
	if len(orders) != 0 {
		t.Fatalf("no order must survive the abort, got %d", len(orders))
	}
	pending, _ := f.outbox.PullPending(10)
	if len(pending) != 0 {
		t.Fatalf("no outbox event must survive the abort, got %d", len(pending))
	}
}

func TestPlaceOrder_ConcurrentLastUnit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	productID, err := f.products.Create(ctx, domain.Product{
		Name:          "limited edition keycap",
		Price:         decimal.RequireFromString("99.90"),
		StockQuantity: 1,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	var lineIDs [2]int64
	var custIDs [2]int64
	for i, name := range []string{"alice", "bob"} {
		custIDs[i], err = f.customers.Create(ctx, domain.Customer{Username: name})
		if err != nil {
			t.Fatalf("create customer: %v", err)
		}
		if err := f.carts.AddLine(ctx, custIDs[i], productID, 1); err != nil {
			t.Fatalf("add line: %v", err)
		}
		lines, err := f.carts.ListByCustomer(ctx, custIDs[i])
		if err != nil {
			t.Fatalf("list cart: %v", err)
		}
		lineIDs[i] = lines[0].ID
	}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.coord.PlaceOrder(ctx, Request{
				CustomerID:      custIDs[i],
				ShippingAddress: "Nevsky 1, Saint Petersburg",
				CartLineIDs:     []int64{lineIDs[i]},
			})
		}(i)
	}
	wg.Wait()

	var committed, insufficient int
	for _, err := range results {
		switch {
		case err == nil:
			committed++
		case domain.IsInsufficientStock(err):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if committed != 1 || insufficient != 1 {
		t.Fatalf("exactly one checkout must win: committed=%d insufficient=%d", committed, insufficient)
	}

	product, _ := f.products.Get(ctx, productID)
	if product.StockQuantity != 0 {
		t.Fatalf("stock oversold or unsold: %d", product.StockQuantity)
	}
}

func TestPlaceOrder_PriceCapturedAtCheckout(t *testing.T) {
	f := newFixture(t)
	customerID, lineIDs, productA, _ := seedCustomerWithCart(t, f)

	order, err := f.coord.PlaceOrder(context.Background(), Request{
		CustomerID:      customerID,
		ShippingAddress: "Tverskaya 7, Moscow",
		CartLineIDs:     lineIDs,
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	// Последующее изменение каталога заказ не трогает.
	a, _ := f.products.Get(context.Background(), productA)
	a.Price = decimal.RequireFromString("999.00")
	if err := f.products.Update(context.Background(), a); err != nil {
		t.Fatalf("update price: %v", err)
	}

	persisted, err := f.orders.Get(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	for _, line := range persisted.Lines {
		if line.ProductID == productA && !line.UnitPrice.Equal(decimal.RequireFromString("10.50")) {
			t.Fatalf("order line price must be immutable, got %s", line.UnitPrice)
		}
	}
	if !persisted.TotalAmount.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("order total must be immutable, got %s", persisted.TotalAmount)
	}
}

// vanishedStore воспроизводит гонку: строка корзины исчезает между
// резолвом и потреблением.
type vanishedStore struct {
	domain.CheckoutStore
}

func (s *vanishedStore) WithinTx(ctx context.Context, fn func(tx domain.CheckoutTx) error) error {
	return s.CheckoutStore.WithinTx(ctx, func(tx domain.CheckoutTx) error {
		return fn(&vanishedTx{CheckoutTx: tx})
	})
}

type vanishedTx struct {
	domain.CheckoutTx
}

func (t *vanishedTx) DeleteCartLine(context.Context, int64) (int64, error) {
	return 0, nil
}

func TestPlaceOrder_VanishedCartLineAborts(t *testing.T) {
	f := newFixture(t)
	customerID, lineIDs, productA, _ := seedCustomerWithCart(t, f)

	coord := NewCoordinatorWithoutMetrics(
		&vanishedStore{CheckoutStore: memory.NewCheckoutStore(f.store, nil)},
		f.customers,
		nil,
		nil,
	)

	_, err := coord.PlaceOrder(context.Background(), Request{
		CustomerID:      customerID,
		ShippingAddress: "Tverskaya 7, Moscow",
		CartLineIDs:     lineIDs,
	})
	if !errors.Is(err, domain.ErrCartLineVanished) {
		t.Fatalf("expected ErrCartLineVanished, got %v", err)
	}

	a, _ := f.products.Get(context.Background(), productA)
	if a.StockQuantity != 5 {
		t.Fatalf("stock must be restored after abort, got %d", a.StockQuantity)
	}
	orders, _ := f.orders.ListByCustomer(context.Background(), customerID)
	if len(orders) != 0 {
		t.Fatalf("no order must survive the abort, got %d", len(orders))
	}
}
