package notify

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/mall/internal/domain"
)

func TestRenderOrderBody(t *testing.T) {
	body := renderOrderBody(domain.OrderNotification{
		OrderID:         7,
		TotalAmount:     decimal.RequireFromString("25.00"),
		ShippingAddress: "Tverskaya 7, Moscow",
		Lines: []domain.OrderLine{
			{ProductName: "wireless mouse", UnitPrice: decimal.RequireFromString("10.50"), Quantity: 2},
			{ProductName: "mouse pad", UnitPrice: decimal.RequireFromString("4.00"), Quantity: 1},
		},
	})

	for _, want := range []string{
		"order #7",
		"wireless mouse x 2 = 21.00",
		"mouse pad x 1 = 4.00",
		"Total: 25.00",
		"Tverskaya 7, Moscow",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("body must contain %q:\n%s", want, body)
		}
	}
}

func TestEmailNotifier_SkipsWithoutAddress(t *testing.T) {
	// Нотификатор без адреса не должен трогать SMTP вовсе.
	n := NewEmailNotifier(SMTPConfig{Host: "smtp.invalid", Port: 587}, nil)
	if err := n.NotifyOrderCreated(context.Background(), domain.OrderNotification{OrderID: 1}); err != nil {
		t.Fatalf("expected silent skip, got %v", err)
	}
}

func TestNoopNotifier(t *testing.T) {
	n := NewNoop(nil)
	if err := n.NotifyOrderCreated(context.Background(), domain.OrderNotification{OrderID: 1}); err != nil {
		t.Fatalf("noop must never fail: %v", err)
	}
}
