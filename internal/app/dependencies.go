package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mall/internal/cache"
	"github.com/vladislavdragonenkov/mall/internal/domain"
	"github.com/vladislavdragonenkov/mall/internal/health"
	"github.com/vladislavdragonenkov/mall/internal/service/auth"
	"github.com/vladislavdragonenkov/mall/internal/service/cart"
	"github.com/vladislavdragonenkov/mall/internal/service/catalog"
	"github.com/vladislavdragonenkov/mall/internal/service/checkout"
	"github.com/vladislavdragonenkov/mall/internal/service/notify"
	"github.com/vladislavdragonenkov/mall/internal/service/orders"
	"github.com/vladislavdragonenkov/mall/internal/storage/memory"
	"github.com/vladislavdragonenkov/mall/internal/storage/postgres"
)

// Dependencies содержит собранные зависимости приложения.
type Dependencies struct {
	Customers   domain.CustomerRepository
	Products    domain.ProductRepository
	Carts       domain.CartRepository
	Orders      domain.OrderRepository
	OutboxRepo  domain.OutboxRepository
	Stats       domain.StatsRepository
	Checkout    domain.CheckoutStore
	StatusCache *cache.OrderStatusCache

	AuthSvc     *auth.Service
	CatalogSvc  *catalog.Service
	CartSvc     *cart.Service
	OrdersSvc   *orders.Service
	CheckoutSvc *checkout.Coordinator
	Notifier    domain.OrderNotifier

	Logger *log.Entry

	pg    *postgres.Store
	redis *redis.Client
}

// NewDependencies собирает репозитории и сервисы согласно конфигурации.
// При выборе postgres подключение проверяется сразу, и ошибка фатальна;
// Redis и SMTP опциональны и деградируют до no-op.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{Logger: logger}

	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("storage driver postgres requires MALL_POSTGRES_DSN")
		}
		pg, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if cfg.PostgresAutoMigrate {
			if err := pg.EnsureSchema(ctx); err != nil {
				_ = pg.Close()
				return nil, err
			}
		}
		deps.pg = pg
		deps.Customers = postgres.NewCustomerRepository(pg)
		deps.Products = postgres.NewProductRepository(pg)
		deps.Carts = postgres.NewCartRepository(pg)
		deps.Orders = postgres.NewOrderRepository(pg)
		deps.OutboxRepo = postgres.NewOutboxRepository(pg)
		deps.Stats = postgres.NewStatsRepository(pg)
		deps.Checkout = postgres.NewCheckoutStore(pg, logger.WithField("layer", "storage"))
		logger.Info("postgres storage initialized")
	case StorageDriverMemory, "":
		store := memory.NewStore()
		deps.Customers = memory.NewCustomerRepository(store)
		deps.Products = memory.NewProductRepository(store)
		deps.Carts = memory.NewCartRepository(store)
		deps.Orders = memory.NewOrderRepository(store)
		deps.OutboxRepo = memory.NewOutboxRepository(store)
		deps.Stats = memory.NewStatsRepository(store)
		deps.Checkout = memory.NewCheckoutStore(store, logger.WithField("layer", "storage"))
		logger.Info("in-memory storage initialized")
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	deps.redis = initRedis(ctx, cfg.RedisAddr, logger)
	deps.StatusCache = cache.NewOrderStatusCache(deps.redis, logger.WithField("component", "cache"))

	if cfg.SMTP.Host != "" {
		deps.Notifier = notify.NewEmailNotifier(cfg.SMTP, logger.WithField("component", "notify"))
	} else {
		deps.Notifier = notify.NewNoop(logger.WithField("component", "notify"))
	}

	deps.AuthSvc = auth.NewService(deps.Customers, cfg.JWTSecret, logger.WithField("component", "auth"))
	deps.CatalogSvc = catalog.NewService(deps.Products, logger.WithField("component", "catalog"))
	deps.CartSvc = cart.NewService(deps.Carts, deps.Products, logger.WithField("component", "cart"))
	deps.OrdersSvc = orders.NewService(deps.Orders, deps.OutboxRepo, logger.WithField("component", "orders"))
	deps.CheckoutSvc = checkout.NewCoordinator(
		deps.Checkout,
		deps.Customers,
		deps.Notifier,
		logger.WithField("component", "checkout"),
	)

	return deps, nil
}

// initRedis подключает Redis для кэша статусов. Возвращает nil, если адрес
// не задан или сервер недоступен: кэш тогда работает как сквозной no-op.
func initRedis(ctx context.Context, addr string, logger *log.Entry) *redis.Client {
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.WithError(err).Warn("redis unavailable, continuing without status cache")
		_ = client.Close()
		return nil
	}

	logger.WithField("addr", addr).Info("redis connected")
	return client
}

// RegisterHealthCheckers вешает проверки живости хранилища и кэша.
func (d *Dependencies) RegisterHealthCheckers(h *health.Handler) {
	if d.pg != nil {
		pg := d.pg
		h.RegisterChecker("postgres", health.NewSimpleChecker("postgres", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pg.Ping(ctx)
		}))
	}
	if d.redis != nil {
		rdb := d.redis
		h.RegisterChecker("redis", health.NewSimpleChecker("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return rdb.Ping(ctx).Err()
		}))
	}
}

// Close освобождает внешние подключения.
func (d *Dependencies) Close() {
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close redis client")
		}
	}
	if d.pg != nil {
		if err := d.pg.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}
