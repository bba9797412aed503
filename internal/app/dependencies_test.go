package app

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mall/internal/health"
)

func TestNewDependencies_Memory(t *testing.T) {
	cfg := DefaultConfig()

	deps, err := NewDependencies(context.Background(), cfg, log.WithField("component", "test"))
	if err != nil {
		t.Fatalf("NewDependencies failed: %v", err)
	}
	defer deps.Close()

	if deps.Customers == nil || deps.Products == nil || deps.Carts == nil {
		t.Fatal("expected repositories to be initialized")
	}
	if deps.Orders == nil || deps.OutboxRepo == nil || deps.Stats == nil {
		t.Fatal("expected order-side repositories to be initialized")
	}
	if deps.Checkout == nil {
		t.Fatal("expected checkout store to be initialized")
	}
	if deps.AuthSvc == nil || deps.CatalogSvc == nil || deps.CartSvc == nil {
		t.Fatal("expected services to be initialized")
	}
	if deps.OrdersSvc == nil || deps.CheckoutSvc == nil {
		t.Fatal("expected order services to be initialized")
	}
	if deps.Notifier == nil {
		t.Fatal("expected notifier to default to noop")
	}
	if deps.StatusCache == nil {
		t.Fatal("expected status cache wrapper even without redis")
	}
}

func TestNewDependencies_UnknownDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = StorageDriver("cassandra")

	if _, err := NewDependencies(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for unknown storage driver")
	}
}

func TestNewDependencies_PostgresRequiresDSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = StorageDriverPostgres
	cfg.PostgresDSN = ""

	if _, err := NewDependencies(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error when postgres driver has no DSN")
	}
}

func TestRegisterHealthCheckers_MemoryHasNoExternalChecks(t *testing.T) {
	cfg := DefaultConfig()
	deps, err := NewDependencies(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewDependencies failed: %v", err)
	}
	defer deps.Close()

	h := health.NewHandler("test")
	deps.RegisterHealthCheckers(h)
}
