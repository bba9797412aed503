package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mall/internal/domain"
	"github.com/vladislavdragonenkov/mall/internal/metrics"
)

// Причины прерывания для метрик.
const (
	abortReasonValidation        = "validation"
	abortReasonEmptyCart         = "empty_cart"
	abortReasonInsufficientStock = "insufficient_stock"
	abortReasonCartVanished      = "cart_vanished"
	abortReasonInternal          = "internal"
)

// notifyTimeout ограничивает отправку уведомления после коммита.
const notifyTimeout = 30 * time.Second

// Request описывает запрос на оформление заказа: покупатель, адрес
// доставки и выбранные строки корзины.
type Request struct {
	CustomerID      int64
	ShippingAddress string
	CartLineIDs     []int64
}

// Coordinator проводит оформление заказа как одну единицу работы:
// снимок корзины, резервирование остатков, запись заказа, потребление
// строк корзины и постановка события в outbox. Либо фиксируются все
// эффекты, либо ни один.
type Coordinator struct {
	store     domain.CheckoutStore
	customers domain.CustomerRepository
	notifier  domain.OrderNotifier
	logger    *log.Entry
	metrics   *metrics.CheckoutMetrics
}

// NewCoordinator создаёт рабочий экземпляр координатора.
func NewCoordinator(
	store domain.CheckoutStore,
	customers domain.CustomerRepository,
	notifier domain.OrderNotifier,
	logger *log.Entry,
) *Coordinator {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	return &Coordinator{
		store:     store,
		customers: customers,
		notifier:  notifier,
		logger:    logger,
		metrics:   metrics.NewCheckoutMetrics(),
	}
}

// NewCoordinatorWithoutMetrics создаёт координатор без метрик (для тестов).
func NewCoordinatorWithoutMetrics(
	store domain.CheckoutStore,
	customers domain.CustomerRepository,
	notifier domain.OrderNotifier,
	logger *log.Entry,
) *Coordinator {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	return &Coordinator{
		store:     store,
		customers: customers,
		notifier:  notifier,
		logger:    logger,
	}
}

// PlaceOrder оформляет заказ из выбранных строк корзины покупателя.
//
// Цена и имя товара фиксируются по снимку на момент резолва; изменение
// каталога между резолвом и коммитом на заказ не влияет. Конкурентные
// оформления разводит условный декремент остатка: при нехватке товара
// транзакция прерывается без каких-либо видимых эффектов.
func (c *Coordinator) PlaceOrder(ctx context.Context, req Request) (domain.Order, error) {
	start := time.Now()
	if c.metrics != nil {
		c.metrics.RecordCheckoutStarted()
	}
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordCheckoutDuration(time.Since(start))
			c.metrics.RecordCheckoutFinished()
		}
	}()

	if err := validateRequest(req); err != nil {
		c.recordAbort(abortReasonValidation)
		return domain.Order{}, err
	}

	resolveStart := time.Now()
	resolved, err := c.store.ResolveCartSnapshot(ctx, req.CustomerID, req.CartLineIDs)
	if err != nil {
		c.recordAbort(abortReasonInternal)
		c.logger.WithError(err).WithField("customer_id", req.CustomerID).Error("resolve cart snapshot failed")
		return domain.Order{}, fmt.Errorf("resolve cart snapshot: %w", err)
	}
	c.recordStep("resolve", resolveStart)

	if len(resolved) == 0 {
		c.recordAbort(abortReasonEmptyCart)
		c.logger.WithFields(log.Fields{
			"customer_id": req.CustomerID,
			"line_ids":    req.CartLineIDs,
		}).Warn("cart snapshot resolved empty, aborting checkout")
		return domain.Order{}, domain.ErrEmptyCartSnapshot
	}

	order := domain.Order{
		CustomerID:      req.CustomerID,
		ShippingAddress: req.ShippingAddress,
		Status:          domain.OrderStatusPending,
		TotalAmount:     domain.TotalAmount(resolved),
		Lines:           domain.OrderLinesFromSnapshot(resolved),
	}
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		c.recordAbort(abortReasonValidation)
		return domain.Order{}, errs[0]
	}

	txStart := time.Now()
	if err := c.store.WithinTx(ctx, func(tx domain.CheckoutTx) error {
		return c.runTransaction(ctx, tx, &order, resolved)
	}); err != nil {
		c.recordTxAbort(req.CustomerID, err)
		return domain.Order{}, err
	}
	c.recordStep("transaction", txStart)

	if c.metrics != nil {
		c.metrics.RecordCheckoutCommitted()
	}
	c.logger.WithFields(log.Fields{
		"order_id":     order.ID,
		"customer_id":  order.CustomerID,
		"total_amount": order.TotalAmount.StringFixed(2),
		"lines":        len(order.Lines),
	}).Info("checkout committed")

	c.notifyDetached(order)

	return order, nil
}

// runTransaction исполняет шаги оформления внутри единицы работы.
// Любая ошибка прерывает транзакцию целиком.
func (c *Coordinator) runTransaction(ctx context.Context, tx domain.CheckoutTx, order *domain.Order, resolved []domain.ResolvedCartLine) error {
	// Резервируем остатки: ноль затронутых строк означает, что товара
	// не хватает прямо сейчас, дальше идти бессмысленно.
	for _, line := range resolved {
		affected, err := tx.ReserveStock(ctx, line.ProductID, line.Quantity)
		if err != nil {
			return fmt.Errorf("reserve stock for product %d: %w", line.ProductID, err)
		}
		if affected == 0 {
			return fmt.Errorf("product %d %q (requested %d): %w",
				line.ProductID, line.ProductName, line.Quantity, domain.ErrInsufficientStock)
		}
	}

	orderID, err := tx.InsertOrderHeader(ctx, *order)
	if err != nil {
		return fmt.Errorf("insert order header: %w", err)
	}
	order.ID = orderID

	if err := tx.InsertOrderLines(ctx, orderID, order.Lines); err != nil {
		return fmt.Errorf("insert order lines: %w", err)
	}

	// Потребляем строки корзины. Исчезнувшая строка означает гонку с
	// параллельным оформлением тех же позиций — прерываемся, чтобы не
	// продать одно и то же дважды.
	for _, line := range resolved {
		affected, err := tx.DeleteCartLine(ctx, line.LineID)
		if err != nil {
			return fmt.Errorf("delete cart line %d: %w", line.LineID, err)
		}
		if affected == 0 {
			return fmt.Errorf("cart line %d: %w", line.LineID, domain.ErrCartLineVanished)
		}
	}

	payload, err := json.Marshal(map[string]interface{}{
		"order_id":     orderID,
		"customer_id":  order.CustomerID,
		"status":       string(order.Status),
		"total_amount": order.TotalAmount.StringFixed(2),
		"lines":        len(order.Lines),
		"ts":           time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	if err := tx.EnqueueOutbox(ctx, domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   strconv.FormatInt(orderID, 10),
		EventType:     "order.created",
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("enqueue order event: %w", err)
	}
	if c.metrics != nil {
		c.metrics.RecordOutboxEvent()
	}

	return nil
}

// notifyDetached отправляет подтверждение заказа вне критического пути.
// Ошибка уведомления логируется и на заказ не влияет.
func (c *Coordinator) notifyDetached(order domain.Order) {
	if c.notifier == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		n := domain.OrderNotification{
			OrderID:         order.ID,
			CustomerID:      order.CustomerID,
			TotalAmount:     order.TotalAmount,
			ShippingAddress: order.ShippingAddress,
			Lines:           order.Lines,
		}
		if c.customers != nil {
			if customer, err := c.customers.Get(ctx, order.CustomerID); err == nil {
				n.Email = customer.Email
			}
		}

		if err := c.notifier.NotifyOrderCreated(ctx, n); err != nil {
			c.logger.WithError(err).WithField("order_id", order.ID).Warn("order notification failed")
		}
	}()
}

func (c *Coordinator) recordTxAbort(customerID int64, err error) {
	reason := abortReasonInternal
	switch {
	case domain.IsInsufficientStock(err):
		reason = abortReasonInsufficientStock
	case isCartVanished(err):
		reason = abortReasonCartVanished
	}
	c.recordAbort(reason)

	c.logger.WithError(err).WithFields(log.Fields{
		"customer_id": customerID,
		"reason":      reason,
	}).Warn("checkout aborted, all effects rolled back")
}

func (c *Coordinator) recordAbort(reason string) {
	if c.metrics != nil {
		c.metrics.RecordCheckoutAborted(reason)
	}
}

func (c *Coordinator) recordStep(step string, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordStepDuration(step, time.Since(start))
	}
}

func validateRequest(req Request) error {
	if req.CustomerID == 0 {
		return domain.ErrCustomerRequired
	}
	if req.ShippingAddress == "" {
		return domain.ErrShippingAddressRequired
	}
	if len(req.CartLineIDs) == 0 {
		return domain.ErrNoCartLinesSelected
	}
	return nil
}

func isCartVanished(err error) bool {
	return errors.Is(err, domain.ErrCartLineVanished)
}
