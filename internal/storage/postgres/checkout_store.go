package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mall/internal/domain"
)

// checkoutTxTimeout покрывает всю единицу работы оформления заказа.
const checkoutTxTimeout = 10 * time.Second

type checkoutStore struct {
	db     *sql.DB
	logger *log.Entry
}

// NewCheckoutStore создаёт PostgreSQL-реализацию CheckoutStore.
func NewCheckoutStore(store *Store, logger *log.Entry) domain.CheckoutStore {
	if logger == nil {
		logger = log.WithField("component", "checkout-store")
	}
	return &checkoutStore{db: store.DB(), logger: logger}
}

// ResolveCartSnapshot читает строки корзины вместе с актуальными данными
// товара. Строки с отсутствующим товаром отсекает сам JOIN; строки со
// структурно битыми данными (NULL-цена, неположительное количество)
// исключаются здесь с предупреждением — они не фатальны для остального набора.
func (s *checkoutStore) ResolveCartSnapshot(ctx context.Context, customerID int64, lineIDs []int64) ([]domain.ResolvedCartLine, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.quantity, p.id, p.name, p.price, p.stock_quantity
		FROM cart c
		JOIN product p ON p.id = c.product_id AND p.is_deleted = FALSE
		WHERE c.customer_id = $1
		  AND c.id = ANY($2)
		ORDER BY c.id
	`, customerID, lineIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve cart snapshot: %w", err)
	}
	defer rows.Close()

	resolved := make([]domain.ResolvedCartLine, 0, len(lineIDs))
	for rows.Next() {
		var (
			line  domain.ResolvedCartLine
			price decimal.NullDecimal
		)
		if err := rows.Scan(&line.LineID, &line.Quantity, &line.ProductID, &line.ProductName, &price, &line.Stock); err != nil {
			return nil, fmt.Errorf("scan cart snapshot row: %w", err)
		}
		if !price.Valid || line.Quantity <= 0 {
			s.logger.WithFields(log.Fields{
				"cart_line_id": line.LineID,
				"product_id":   line.ProductID,
				"customer_id":  customerID,
			}).Warn("cart line has invalid product data, excluding from snapshot")
			continue
		}
		line.UnitPrice = price.Decimal
		resolved = append(resolved, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart snapshot: %w", err)
	}

	return resolved, nil
}

// WithinTx открывает одну транзакцию на всю единицу работы. Rollback в defer
// гарантирует, что соединение и транзакция освобождаются на любом пути.
func (s *checkoutStore) WithinTx(ctx context.Context, fn func(tx domain.CheckoutTx) error) error {
	ctx, cancel := context.WithTimeout(ctx, checkoutTxTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin checkout tx: %w", err)
	}
	defer func() {
		// No-op после успешного Commit.
		_ = tx.Rollback()
	}()

	if err := fn(&checkoutTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit checkout tx: %w", err)
	}

	return nil
}

type checkoutTx struct {
	tx *sql.Tx
}

// ReserveStock — условный декремент: уменьшить, только если остатка хватает.
// Конкурирующие заказы на один товар сериализуются блокировкой строки
// в базе; проигравший получает ноль затронутых строк.
func (t *checkoutTx) ReserveStock(ctx context.Context, productID int64, quantity int32) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE product
		SET stock_quantity = stock_quantity - $1, updated_at = NOW()
		WHERE id = $2
		  AND is_deleted = FALSE
		  AND stock_quantity >= $1
	`, quantity, productID)
	if err != nil {
		return 0, fmt.Errorf("reserve stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	return affected, nil
}

func (t *checkoutTx) InsertOrderHeader(ctx context.Context, order domain.Order) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO order_master (customer_id, total_amount, shipping_address, order_status)
		VALUES ($1,$2,$3,$4)
		RETURNING order_id
	`,
		order.CustomerID, order.TotalAmount, order.ShippingAddress, string(domain.OrderStatusPending),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert order header: %w", err)
	}

	return id, nil
}

// InsertOrderLines пишет все позиции одним multi-row INSERT.
func (t *checkoutTx) InsertOrderLines(ctx context.Context, orderID int64, lines []domain.OrderLine) error {
	if len(lines) == 0 {
		return domain.ErrOrderLinesRequired
	}

	query := `INSERT INTO order_item (order_id, product_id, product_name, price_at_purchase, quantity) VALUES `
	args := make([]any, 0, len(lines)*5)
	for i, line := range lines {
		if i > 0 {
			query += ", "
		}
		base := i * 5
		query += fmt.Sprintf("($%d,$%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4, base+5)
		args = append(args, orderID, line.ProductID, line.ProductName, line.UnitPrice, line.Quantity)
	}

	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert order lines: %w", err)
	}

	return nil
}

func (t *checkoutTx) DeleteCartLine(ctx context.Context, lineID int64) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM cart WHERE id = $1`, lineID)
	if err != nil {
		return 0, fmt.Errorf("delete cart line: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	return affected, nil
}

func (t *checkoutTx) EnqueueOutbox(ctx context.Context, msg domain.OutboxMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO outbox_messages (
			id, aggregate_type, aggregate_id, event_type, payload,
			status, attempt_count, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,'pending',0,$6,$7)
	`,
		msg.ID, msg.AggregateType, msg.AggregateID, msg.EventType, msg.Payload, now, now,
	)
	if err != nil {
		return fmt.Errorf("enqueue outbox message: %w", err)
	}

	return nil
}

var _ domain.CheckoutStore = (*checkoutStore)(nil)
var _ domain.CheckoutTx = (*checkoutTx)(nil)
