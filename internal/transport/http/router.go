package http

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mall/internal/cache"
	"github.com/vladislavdragonenkov/mall/internal/domain"
	"github.com/vladislavdragonenkov/mall/internal/health"
	"github.com/vladislavdragonenkov/mall/internal/service/auth"
	"github.com/vladislavdragonenkov/mall/internal/service/cart"
	"github.com/vladislavdragonenkov/mall/internal/service/catalog"
	"github.com/vladislavdragonenkov/mall/internal/service/checkout"
	"github.com/vladislavdragonenkov/mall/internal/service/orders"
)

const requestTimeout = 15 * time.Second

// StatusCache — то, что обработчику заказов нужно от кэша статусов.
// Реализуется *cache.OrderStatusCache.
type StatusCache interface {
	Get(ctx context.Context, orderID int64) (domain.OrderStatus, int64, bool)
	Set(ctx context.Context, orderID, ownerID int64, status domain.OrderStatus)
	Invalidate(ctx context.Context, orderID int64)
}

var _ StatusCache = (*cache.OrderStatusCache)(nil)

// Deps — зависимости HTTP-слоя.
type Deps struct {
	Auth        *auth.Service
	Catalog     *catalog.Service
	Cart        *cart.Service
	Checkout    *checkout.Coordinator
	Orders      *orders.Service
	Stats       domain.StatsRepository
	StatusCache StatusCache
	Health      *health.Handler
	Logger      *log.Entry
}

// NewRouter собирает маршрутизатор публичного API.
//
// Публичные маршруты: каталог и аутентификация. Всё остальное — под
// Bearer-токеном; административные операции дополнительно требуют
// роли администратора.
func NewRouter(deps Deps) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "http")
	}
	if deps.StatusCache == nil {
		deps.StatusCache = cache.NewOrderStatusCache(nil, nil)
	}

	authH := &authHandler{auth: deps.Auth, logger: logger}
	customerH := &customerHandler{auth: deps.Auth, logger: logger}
	productH := &productHandler{catalog: deps.Catalog, logger: logger}
	cartH := &cartHandler{cart: deps.Cart, logger: logger}
	orderH := &orderHandler{
		checkout:    deps.Checkout,
		orders:      deps.Orders,
		statusCache: deps.StatusCache,
		logger:      logger,
	}
	statsH := &statsHandler{stats: deps.Stats, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	if deps.Health != nil {
		r.Get("/healthz", health.LivenessHandler)
		r.Get("/readyz", deps.Health.ReadinessHandler)
		r.Get("/health", deps.Health.ServeHTTP)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", authH.register)
		r.Route("/products", productH.register)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(deps.Auth))

			r.Route("/customers", customerH.register)
			r.Route("/cart", cartH.register)
			r.Route("/orders", orderH.register)

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireAdmin)

				r.Route("/products", productH.registerAdmin)
				r.Route("/orders", orderH.registerAdmin)
				if deps.Stats != nil {
					r.Route("/stats", statsH.register)
				}
			})
		})
	})

	return r
}
