package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/mall/internal/cache"
	"github.com/vladislavdragonenkov/mall/internal/domain"
	"github.com/vladislavdragonenkov/mall/internal/service/auth"
	"github.com/vladislavdragonenkov/mall/internal/service/cart"
	"github.com/vladislavdragonenkov/mall/internal/service/catalog"
	"github.com/vladislavdragonenkov/mall/internal/service/checkout"
	"github.com/vladislavdragonenkov/mall/internal/service/orders"
	"github.com/vladislavdragonenkov/mall/internal/storage/memory"
)

type testEnv struct {
	router   *chi.Mux
	store    *memory.Store
	authSvc  *auth.Service
	products domain.ProductRepository
}

// stubStatusCache — кэш статусов в памяти для проверки путей,
// которые при живом Redis обслуживаются из кэша.
type stubStatusCache struct {
	owners   map[int64]int64
	statuses map[int64]domain.OrderStatus
}

func newStubStatusCache() *stubStatusCache {
	return &stubStatusCache{
		owners:   make(map[int64]int64),
		statuses: make(map[int64]domain.OrderStatus),
	}
}

func (c *stubStatusCache) Get(_ context.Context, orderID int64) (domain.OrderStatus, int64, bool) {
	status, ok := c.statuses[orderID]
	if !ok {
		return "", 0, false
	}
	return status, c.owners[orderID], true
}

func (c *stubStatusCache) Set(_ context.Context, orderID, ownerID int64, status domain.OrderStatus) {
	c.owners[orderID] = ownerID
	c.statuses[orderID] = status
}

func (c *stubStatusCache) Invalidate(_ context.Context, orderID int64) {
	delete(c.owners, orderID)
	delete(c.statuses, orderID)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithCache(t, cache.NewOrderStatusCache(nil, nil))
}

func newTestEnvWithCache(t *testing.T, statusCache StatusCache) *testEnv {
	t.Helper()

	store := memory.NewStore()
	products := memory.NewProductRepository(store)
	carts := memory.NewCartRepository(store)
	ordersRepo := memory.NewOrderRepository(store)
	customers := memory.NewCustomerRepository(store)

	authSvc := auth.NewService(customers, "router-test-secret", nil)
	router := NewRouter(Deps{
		Auth:        authSvc,
		Catalog:     catalog.NewService(products, nil),
		Cart:        cart.NewService(carts, products, nil),
		Checkout:    checkout.NewCoordinatorWithoutMetrics(memory.NewCheckoutStore(store, nil), customers, nil, nil),
		Orders:      orders.NewService(ordersRepo, memory.NewOutboxRepository(store), nil),
		Stats:       memory.NewStatsRepository(store),
		StatusCache: statusCache,
	})

	return &testEnv{router: router, store: store, authSvc: authSvc, products: products}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) registerAndLogin(t *testing.T, username string, admin bool) (token string, id int64) {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/auth/register", "", registerRequest{
		Username: username,
		Password: "s3cret",
		Email:    username + "@example.com",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: status %d: %s", w.Code, w.Body.String())
	}

	if admin {
		e.promoteToAdmin(t, username)
	}

	w = e.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Username: username, Password: "s3cret"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: status %d: %s", w.Code, w.Body.String())
	}
	var resp authResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return resp.Token, resp.ID
}

// promoteToAdmin выставляет флаг администратора напрямую в хранилище.
func (e *testEnv) promoteToAdmin(t *testing.T, username string) {
	t.Helper()
	customers := memory.NewCustomerRepository(e.store)
	customer, err := customers.GetByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	e.store.SetAdmin(customer.ID)
}

func (e *testEnv) seedProduct(t *testing.T, name, price string, stock int32) int64 {
	t.Helper()
	id, err := e.products.Create(context.Background(), domain.Product{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return id
}

func TestRouter_CatalogIsPublic(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(t, "usb cable", "3.50", 100)

	w := env.do(t, http.MethodGet, "/api/products", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var products []productResponse
	if err := json.Unmarshal(w.Body.Bytes(), &products); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(products) != 1 || products[0].Name != "usb cable" {
		t.Fatalf("unexpected products: %+v", products)
	}
}

func TestRouter_CartRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/cart", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	w = env.do(t, http.MethodGet, "/api/cart", "garbage-token", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", w.Code)
	}
}

func TestRouter_CheckoutFlow(t *testing.T) {
	env := newTestEnv(t)
	productA := env.seedProduct(t, "wireless mouse", "10.50", 5)
	productB := env.seedProduct(t, "mouse pad", "4.00", 3)
	token, _ := env.registerAndLogin(t, "alice", false)

	for _, item := range []addToCartRequest{
		{ProductID: productA, Quantity: 2},
		{ProductID: productB, Quantity: 1},
	} {
		if w := env.do(t, http.MethodPost, "/api/cart", token, item); w.Code != http.StatusNoContent {
			t.Fatalf("add to cart: status %d: %s", w.Code, w.Body.String())
		}
	}

	w := env.do(t, http.MethodGet, "/api/cart", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list cart: status %d", w.Code)
	}
	var cartLines []cartLineResponse
	if err := json.Unmarshal(w.Body.Bytes(), &cartLines); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if len(cartLines) != 2 {
		t.Fatalf("expected 2 cart lines, got %d", len(cartLines))
	}

	lineIDs := []int64{cartLines[0].LineID, cartLines[1].LineID}
	w = env.do(t, http.MethodPost, "/api/orders", token, placeOrderRequest{
		ShippingAddress: "Tverskaya 7, Moscow",
		CartLineIDs:     lineIDs,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("place order: status %d: %s", w.Code, w.Body.String())
	}
	var order orderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if !order.TotalAmount.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("expected total 25.00, got %s", order.TotalAmount)
	}
	if order.Status != string(domain.OrderStatusPending) {
		t.Fatalf("expected PENDING, got %s", order.Status)
	}

	// Корзина опустела.
	w = env.do(t, http.MethodGet, "/api/cart", token, nil)
	cartLines = nil
	if err := json.Unmarshal(w.Body.Bytes(), &cartLines); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if len(cartLines) != 0 {
		t.Fatalf("cart must be empty after checkout, got %d lines", len(cartLines))
	}

	// Заказ виден в истории.
	w = env.do(t, http.MethodGet, "/api/orders", token, nil)
	var myOrders []orderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &myOrders); err != nil {
		t.Fatalf("decode orders: %v", err)
	}
	if len(myOrders) != 1 || myOrders[0].ID != order.ID {
		t.Fatalf("unexpected order history: %+v", myOrders)
	}
}

func TestRouter_CheckoutInsufficientStockIs409(t *testing.T) {
	env := newTestEnv(t)
	productID := env.seedProduct(t, "graphics card", "500.00", 1)
	token, _ := env.registerAndLogin(t, "alice", false)

	if w := env.do(t, http.MethodPost, "/api/cart", token, addToCartRequest{ProductID: productID, Quantity: 1}); w.Code != http.StatusNoContent {
		t.Fatalf("add to cart: %d", w.Code)
	}
	w := env.do(t, http.MethodGet, "/api/cart", token, nil)
	var cartLines []cartLineResponse
	if err := json.Unmarshal(w.Body.Bytes(), &cartLines); err != nil {
		t.Fatalf("decode cart: %v", err)
	}

	// Последнюю единицу забирают до оформления.
	product, err := env.products.Get(context.Background(), productID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	product.StockQuantity = 0
	if err := env.products.Update(context.Background(), product); err != nil {
		t.Fatalf("drain stock: %v", err)
	}

	w = env.do(t, http.MethodPost, "/api/orders", token, placeOrderRequest{
		ShippingAddress: "Tverskaya 7, Moscow",
		CartLineIDs:     []int64{cartLines[0].LineID},
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRouter_CheckoutValidationIs400(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.registerAndLogin(t, "alice", false)

	w := env.do(t, http.MethodPost, "/api/orders", token, placeOrderRequest{CartLineIDs: []int64{1}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing address must be 400, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/orders", token, placeOrderRequest{ShippingAddress: "a"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty selection must be 400, got %d", w.Code)
	}
}

func TestRouter_AdminOnlyRoutes(t *testing.T) {
	env := newTestEnv(t)
	userToken, _ := env.registerAndLogin(t, "alice", false)
	adminToken, _ := env.registerAndLogin(t, "root", true)

	payload := productPayload{Name: "new product", Price: decimal.RequireFromString("1.00")}

	if w := env.do(t, http.MethodPost, "/api/admin/products", userToken, payload); w.Code != http.StatusForbidden {
		t.Fatalf("non-admin create must be 403, got %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/api/admin/products", adminToken, payload); w.Code != http.StatusCreated {
		t.Fatalf("admin create: status %d: %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodGet, "/api/admin/stats/status-breakdown", userToken, nil); w.Code != http.StatusForbidden {
		t.Fatalf("non-admin stats must be 403, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/admin/stats/status-breakdown", adminToken, nil); w.Code != http.StatusOK {
		t.Fatalf("admin stats: status %d", w.Code)
	}
}

func TestRouter_OrderDeleteAuthz(t *testing.T) {
	env := newTestEnv(t)
	productID := env.seedProduct(t, "webcam", "30.00", 5)

	aliceToken, _ := env.registerAndLogin(t, "alice", false)
	bobToken, _ := env.registerAndLogin(t, "bob", false)

	if w := env.do(t, http.MethodPost, "/api/cart", aliceToken, addToCartRequest{ProductID: productID, Quantity: 1}); w.Code != http.StatusNoContent {
		t.Fatalf("add to cart: %d", w.Code)
	}
	w := env.do(t, http.MethodGet, "/api/cart", aliceToken, nil)
	var cartLines []cartLineResponse
	if err := json.Unmarshal(w.Body.Bytes(), &cartLines); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	w = env.do(t, http.MethodPost, "/api/orders", aliceToken, placeOrderRequest{
		ShippingAddress: "Arbat 12",
		CartLineIDs:     []int64{cartLines[0].LineID},
	})
	var order orderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode order: %v", err)
	}

	path := fmt.Sprintf("/api/orders/%d", order.ID)
	if w := env.do(t, http.MethodDelete, path, bobToken, nil); w.Code != http.StatusForbidden {
		t.Fatalf("foreign delete must be 403, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, path, aliceToken, nil); w.Code != http.StatusOK {
		t.Fatalf("order must survive denied delete, got %d", w.Code)
	}
	if w := env.do(t, http.MethodDelete, path, aliceToken, nil); w.Code != http.StatusNoContent {
		t.Fatalf("owner delete: status %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, path, aliceToken, nil); w.Code != http.StatusNotFound {
		t.Fatalf("deleted order must be 404, got %d", w.Code)
	}
}

func TestRouter_CustomerProfile(t *testing.T) {
	env := newTestEnv(t)
	token, id := env.registerAndLogin(t, "alice", false)

	// Профиль требует токена.
	if w := env.do(t, http.MethodGet, "/api/customers/me", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous profile read must be 401, got %d", w.Code)
	}

	w := env.do(t, http.MethodGet, "/api/customers/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("profile read: %d: %s", w.Code, w.Body.String())
	}
	var profile profileResponse
	if err := json.Unmarshal(w.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.ID != id || profile.Username != "alice" || profile.Email != "alice@example.com" {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	w = env.do(t, http.MethodPut, "/api/customers/me", token, updateProfileRequest{
		Email: "alice@mall.example",
		Phone: "+7 900 000-00-00",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("profile update: %d: %s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode updated profile: %v", err)
	}
	if profile.Email != "alice@mall.example" || profile.Phone != "+7 900 000-00-00" {
		t.Fatalf("update not applied: %+v", profile)
	}

	// Повторное чтение видит новые контакты.
	w = env.do(t, http.MethodGet, "/api/customers/me", token, nil)
	if err := json.Unmarshal(w.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.Email != "alice@mall.example" {
		t.Fatalf("expected persisted email, got %s", profile.Email)
	}
}

func TestRouter_OrderStatusCacheRespectsOwnership(t *testing.T) {
	statusCache := newStubStatusCache()
	env := newTestEnvWithCache(t, statusCache)
	productID := env.seedProduct(t, "keyboard", "55.00", 5)

	aliceToken, aliceID := env.registerAndLogin(t, "alice", false)
	bobToken, _ := env.registerAndLogin(t, "bob", false)
	adminToken, _ := env.registerAndLogin(t, "root", true)

	if w := env.do(t, http.MethodPost, "/api/cart", aliceToken, addToCartRequest{ProductID: productID, Quantity: 1}); w.Code != http.StatusNoContent {
		t.Fatalf("add to cart: %d", w.Code)
	}
	w := env.do(t, http.MethodGet, "/api/cart", aliceToken, nil)
	var cartLines []cartLineResponse
	if err := json.Unmarshal(w.Body.Bytes(), &cartLines); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	w = env.do(t, http.MethodPost, "/api/orders", aliceToken, placeOrderRequest{
		ShippingAddress: "Arbat 12",
		CartLineIDs:     []int64{cartLines[0].LineID},
	})
	var order orderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode order: %v", err)
	}

	// Владелец прогревает кэш.
	path := fmt.Sprintf("/api/orders/%d/status", order.ID)
	if w := env.do(t, http.MethodGet, path, aliceToken, nil); w.Code != http.StatusOK {
		t.Fatalf("owner status read: %d: %s", w.Code, w.Body.String())
	}
	if _, _, hit := statusCache.Get(context.Background(), order.ID); !hit {
		t.Fatal("status must be cached after owner read")
	}

	// Чужой заказ из тёплого кэша не читается.
	if w := env.do(t, http.MethodGet, path, bobToken, nil); w.Code != http.StatusForbidden {
		t.Fatalf("foreign status read from warm cache must be 403, got %d", w.Code)
	}

	// Администратору и владельцу тёплый кэш отвечает статусом.
	for name, token := range map[string]string{"admin": adminToken, "owner": aliceToken} {
		w := env.do(t, http.MethodGet, path, token, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s status read: %d", name, w.Code)
		}
		var resp map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		if resp["status"] != string(domain.OrderStatusPending) {
			t.Fatalf("%s: expected PENDING, got %s", name, resp["status"])
		}
	}

	if got := statusCache.owners[order.ID]; got != aliceID {
		t.Fatalf("cache must record owner %d, got %d", aliceID, got)
	}
}
