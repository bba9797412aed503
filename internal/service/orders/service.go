package orders

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mall/internal/domain"
)

// Service — операции над существующими заказами: чтение истории,
// смена статуса администратором и удаление. Создание заказа живёт
// в пакете checkout.
type Service struct {
	orders domain.OrderRepository
	outbox domain.OutboxRepository
	logger *log.Entry
}

// NewService создаёт сервис заказов. outbox может быть nil: тогда события
// о смене статуса и удалении не публикуются.
func NewService(orders domain.OrderRepository, outbox domain.OutboxRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "orders")
	}
	return &Service{orders: orders, outbox: outbox, logger: logger}
}

// Get возвращает заказ с позициями. Чужой заказ доступен только
// администратору.
func (s *Service) Get(ctx context.Context, orderID, requesterID int64, isAdmin bool) (domain.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.CustomerID != requesterID && !isAdmin {
		return domain.Order{}, domain.ErrPermissionDenied
	}
	return order, nil
}

// ListByCustomer возвращает заказы покупателя, новые сверху.
func (s *Service) ListByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error) {
	return s.orders.ListByCustomer(ctx, customerID)
}

// ListAll возвращает все заказы для административной панели.
func (s *Service) ListAll(ctx context.Context) ([]domain.Order, error) {
	return s.orders.ListAll(ctx)
}

// UpdateStatus выставляет статус заказа. Статус — свободная строка,
// переходы не валидируются; повторное применение того же статуса
// безвредно.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	affected, err := s.orders.UpdateStatus(ctx, orderID, status)
	if err != nil {
		return err
	}
	if !affected {
		return domain.ErrOrderNotFound
	}

	s.logger.WithFields(log.Fields{
		"order_id": orderID,
		"status":   status,
	}).Info("order status updated")

	if order, err := s.orders.Get(ctx, orderID); err == nil {
		s.emitEvent(ctx, "order.status_changed", order)
	}

	return nil
}

// Delete удаляет заказ вместе с позициями. Право проверяется до любых
// записей: владелец или администратор.
func (s *Service) Delete(ctx context.Context, orderID, requesterID int64, isAdmin bool) error {
	// Снимок до удаления: после него данных для события уже не будет.
	snapshot, snapshotErr := s.orders.Get(ctx, orderID)

	affected, err := s.orders.Delete(ctx, orderID, requesterID, isAdmin)
	if err != nil {
		return err
	}
	if !affected {
		return domain.ErrOrderNotFound
	}

	s.logger.WithFields(log.Fields{
		"order_id":     orderID,
		"requester_id": requesterID,
	}).Info("order deleted")

	if snapshotErr == nil {
		s.emitEvent(ctx, "order.deleted", snapshot)
	}

	return nil
}

// emitEvent ставит событие в outbox. Само изменение заказа уже
// зафиксировано, поэтому ошибка публикации только логируется.
func (s *Service) emitEvent(ctx context.Context, eventType string, order domain.Order) {
	if s.outbox == nil {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"order_id":     order.ID,
		"customer_id":  order.CustomerID,
		"status":       string(order.Status),
		"total_amount": order.TotalAmount.StringFixed(2),
		"ts":           time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to marshal order event")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   strconv.FormatInt(order.ID, 10),
		EventType:     eventType,
		Payload:       payload,
	}
	if err := s.outbox.Enqueue(ctx, msg); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id":   order.ID,
			"event_type": eventType,
		}).Warn("failed to enqueue order event")
	}
}
