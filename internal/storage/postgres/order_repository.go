package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/mall/internal/domain"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository:
// пути чтения и административные операции. Создание заказа идёт через
// CheckoutStore в одной транзакции с резервированием.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

const orderSelectColumns = `
	SELECT om.order_id, om.customer_id,
	       COALESCE(c.username, 'Customer ' || om.customer_id) AS customer_name,
	       om.total_amount, om.shipping_address, om.order_status, om.order_date
	FROM order_master om
	LEFT JOIN customer c ON c.id = om.customer_id
`

func (r *orderRepository) Get(ctx context.Context, id int64) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var order domain.Order
	var status string
	err := r.db.QueryRowContext(ctx, orderSelectColumns+` WHERE om.order_id = $1`, id).Scan(
		&order.ID, &order.CustomerID, &order.CustomerName,
		&order.TotalAmount, &order.ShippingAddress, &status, &order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}
	order.Status = domain.OrderStatus(status)

	lines, err := r.loadLines(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Lines = lines

	return order, nil
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.list(ctx, orderSelectColumns+`
		WHERE om.customer_id = $1
		ORDER BY om.order_date DESC, om.order_id DESC
	`, customerID)
}

func (r *orderRepository) ListAll(ctx context.Context) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.list(ctx, orderSelectColumns+`
		ORDER BY om.order_date DESC, om.order_id DESC
	`)
}

// UpdateStatus — одиночный условный UPDATE; повторное применение того же
// статуса также затрагивает строку и считается успехом.
func (r *orderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE order_master SET order_status = $1 WHERE order_id = $2
	`, string(status), id)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	return affected > 0, nil
}

// Delete удаляет позиции, затем шапку, в одной транзакции. Авторизация
// (владелец или администратор) проверяется до первой записи.
func (r *orderRepository) Delete(ctx context.Context, id, requesterID int64, isAdmin bool) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var ownerID int64
	err = tx.QueryRowContext(ctx, `
		SELECT customer_id FROM order_master WHERE order_id = $1
	`, id).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = nil
			_ = tx.Rollback()
			return false, nil
		}
		return false, fmt.Errorf("check order owner: %w", err)
	}
	if ownerID != requesterID && !isAdmin {
		_ = tx.Rollback()
		return false, domain.ErrPermissionDenied
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM order_item WHERE order_id = $1`, id); err != nil {
		return false, fmt.Errorf("delete order lines: %w", err)
	}

	var res sql.Result
	res, err = tx.ExecContext(ctx, `DELETE FROM order_master WHERE order_id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete order header: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		err = errors.New("order vanished during delete")
		return false, err
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete order: %w", err)
	}

	return true, nil
}

func (r *orderRepository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var order domain.Order
		var status string
		if err := rows.Scan(
			&order.ID, &order.CustomerID, &order.CustomerName,
			&order.TotalAmount, &order.ShippingAddress, &status, &order.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		order.Status = domain.OrderStatus(status)
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	// Позиции дочитываются отдельным запросом на заказ и соединяются в памяти.
	for i := range orders {
		lines, err := r.loadLines(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Lines = lines
	}

	return orders, nil
}

func (r *orderRepository) loadLines(ctx context.Context, orderID int64) ([]domain.OrderLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT item_id, order_id, product_id, product_name, price_at_purchase, quantity
		FROM order_item
		WHERE order_id = $1
		ORDER BY item_id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.OrderLine, 0)
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(
			&line.ID, &line.OrderID, &line.ProductID,
			&line.ProductName, &line.UnitPrice, &line.Quantity,
		); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}

	return lines, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
