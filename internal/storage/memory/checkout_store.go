package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mall/internal/domain"
)

type checkoutStore struct {
	store  *Store
	logger *log.Entry
}

// NewCheckoutStore возвращает in-memory реализацию CheckoutStore.
// Единица работы реализована как копия состояния при входе и восстановление
// при ошибке: атомарность оформления заказа проверяется без базы.
func NewCheckoutStore(store *Store, logger *log.Entry) domain.CheckoutStore {
	if logger == nil {
		logger = log.WithField("component", "checkout-store")
	}
	return &checkoutStore{store: store, logger: logger}
}

func (s *checkoutStore) ResolveCartSnapshot(_ context.Context, customerID int64, lineIDs []int64) ([]domain.ResolvedCartLine, error) {
	st := s.store
	st.mu.RLock()
	defer st.mu.RUnlock()

	requested := make(map[int64]bool, len(lineIDs))
	for _, id := range lineIDs {
		requested[id] = true
	}

	resolved := make([]domain.ResolvedCartLine, 0, len(lineIDs))
	for _, line := range st.cartLines {
		if line.CustomerID != customerID || !requested[line.ID] {
			continue
		}
		product, ok := st.products[line.ProductID]
		if !ok || product.Deleted {
			continue
		}
		if line.Quantity <= 0 {
			s.logger.WithFields(log.Fields{
				"cart_line_id": line.ID,
				"product_id":   line.ProductID,
				"customer_id":  customerID,
			}).Warn("cart line has invalid product data, excluding from snapshot")
			continue
		}
		resolved = append(resolved, domain.ResolvedCartLine{
			LineID:      line.ID,
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Stock:       product.StockQuantity,
			Quantity:    line.Quantity,
		})
	}

	sort.Slice(resolved, func(i, j int) bool { return resolved[i].LineID < resolved[j].LineID })

	return resolved, nil
}

// WithinTx исполняет fn под общим локом, предварительно сняв копию
// состояния. Ошибка fn восстанавливает копию: никакой частичный эффект
// не становится видимым.
func (s *checkoutStore) WithinTx(_ context.Context, fn func(tx domain.CheckoutTx) error) error {
	st := s.store
	st.mu.Lock()
	defer st.mu.Unlock()

	before := st.snapshot()
	if err := fn(&checkoutTx{store: st}); err != nil {
		st.restore(before)
		return err
	}

	return nil
}

type checkoutTx struct {
	store *Store
}

// ReserveStock — in-memory эквивалент условного декремента: уменьшение
// только при достаточном остатке, ноль затронутых строк иначе.
func (t *checkoutTx) ReserveStock(_ context.Context, productID int64, quantity int32) (int64, error) {
	product, ok := t.store.products[productID]
	if !ok || product.Deleted || product.StockQuantity < quantity {
		return 0, nil
	}
	product.StockQuantity -= quantity
	product.UpdatedAt = time.Now().UTC()
	t.store.products[productID] = product

	return 1, nil
}

func (t *checkoutTx) InsertOrderHeader(_ context.Context, order domain.Order) (int64, error) {
	t.store.orderSeq++
	order.ID = t.store.orderSeq
	order.Status = domain.OrderStatusPending
	order.CreatedAt = time.Now().UTC()
	order.Lines = nil
	t.store.orders[order.ID] = order

	return order.ID, nil
}

func (t *checkoutTx) InsertOrderLines(_ context.Context, orderID int64, lines []domain.OrderLine) error {
	if len(lines) == 0 {
		return domain.ErrOrderLinesRequired
	}

	order, ok := t.store.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	for _, line := range lines {
		t.store.lineSeq++
		line.ID = t.store.lineSeq
		line.OrderID = orderID
		order.Lines = append(order.Lines, line)
	}
	t.store.orders[orderID] = order

	return nil
}

func (t *checkoutTx) DeleteCartLine(_ context.Context, lineID int64) (int64, error) {
	if _, ok := t.store.cartLines[lineID]; !ok {
		return 0, nil
	}
	delete(t.store.cartLines, lineID)

	return 1, nil
}

func (t *checkoutTx) EnqueueOutbox(_ context.Context, msg domain.OutboxMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	t.store.outbox = append(t.store.outbox, outboxRecord{
		msg:       msg,
		status:    "pending",
		createdAt: time.Now().UTC(),
	})

	return nil
}

var _ domain.CheckoutStore = (*checkoutStore)(nil)
var _ domain.CheckoutTx = (*checkoutTx)(nil)
