package main

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mall/internal/domain"
	"github.com/vladislavdragonenkov/mall/internal/storage/memory"
)

type recordedNotification struct {
	email   string
	orderID int64
	status  string
}

type stubNotifier struct {
	sent []recordedNotification
	err  error
}

func (s *stubNotifier) NotifyStatusChanged(_ context.Context, email string, orderID int64, status string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, recordedNotification{email: email, orderID: orderID, status: status})
	return nil
}

func envelopeMessage(t *testing.T, eventType string, orderID, customerID int64, status string) *sarama.ConsumerMessage {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"order_id":     orderID,
		"customer_id":  customerID,
		"status":       status,
		"total_amount": "25.00",
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	value, err := json.Marshal(map[string]any{
		"id":         "msg-1",
		"event_type": eventType,
		"payload":    json.RawMessage(payload),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &sarama.ConsumerMessage{Value: value}
}

func testLogger() *log.Entry {
	logger := log.New()
	logger.SetLevel(log.ErrorLevel)
	return logger.WithField("component", "notify-worker-test")
}

func TestHandleOrderEvent_StatusChangedSendsEmail(t *testing.T) {
	store := memory.NewStore()
	customers := memory.NewCustomerRepository(store)
	customerID, err := customers.Create(context.Background(), domain.Customer{
		Username: "alice",
		Email:    "alice@example.com",
	})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	notifier := &stubNotifier{}
	message := envelopeMessage(t, "order.status_changed", 42, customerID, "SHIPPED")

	if err := handleOrderEvent(context.Background(), message, customers, notifier, testLogger()); err != nil {
		t.Fatalf("handleOrderEvent failed: %v", err)
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.sent))
	}
	got := notifier.sent[0]
	if got.email != "alice@example.com" || got.orderID != 42 || got.status != "SHIPPED" {
		t.Fatalf("unexpected notification: %+v", got)
	}
}

func TestHandleOrderEvent_SkipsOtherEventTypes(t *testing.T) {
	store := memory.NewStore()
	customers := memory.NewCustomerRepository(store)
	notifier := &stubNotifier{}

	for _, eventType := range []string{"order.created", "order.deleted"} {
		message := envelopeMessage(t, eventType, 42, 1, "PENDING")
		if err := handleOrderEvent(context.Background(), message, customers, notifier, testLogger()); err != nil {
			t.Fatalf("handleOrderEvent(%s) failed: %v", eventType, err)
		}
	}

	if len(notifier.sent) != 0 {
		t.Fatalf("expected no notifications, got %d", len(notifier.sent))
	}
}

func TestHandleOrderEvent_MissingCustomerIsDropped(t *testing.T) {
	store := memory.NewStore()
	customers := memory.NewCustomerRepository(store)
	notifier := &stubNotifier{}
	message := envelopeMessage(t, "order.status_changed", 42, 999, "SHIPPED")

	// Покупатель удалён: уведомление отбрасывается без ошибки, чтобы
	// сообщение не попало в DLQ.
	if err := handleOrderEvent(context.Background(), message, customers, notifier, testLogger()); err != nil {
		t.Fatalf("expected nil error for missing customer, got %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("expected no notifications, got %d", len(notifier.sent))
	}
}

func TestHandleOrderEvent_InvalidJSON(t *testing.T) {
	store := memory.NewStore()
	customers := memory.NewCustomerRepository(store)

	message := &sarama.ConsumerMessage{Value: []byte("{not json")}
	if err := handleOrderEvent(context.Background(), message, customers, &stubNotifier{}, testLogger()); err == nil {
		t.Fatal("expected error for invalid json")
	}
}
