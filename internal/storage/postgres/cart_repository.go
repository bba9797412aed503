package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vladislavdragonenkov/mall/internal/domain"
)

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository создаёт PostgreSQL-реализацию CartRepository.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepository{db: store.DB()}
}

// AddLine сливает количество в существующую строку пары (customer, product)
// вместо создания дубликата: уникальный индекс + ON CONFLICT закрывают гонку
// конкурентных добавлений одного товара.
func (r *cartRepository) AddLine(ctx context.Context, customerID, productID int64, quantity int32) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if quantity <= 0 {
		return domain.ErrLineQtyInvalid
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart (customer_id, product_id, quantity)
		VALUES ($1,$2,$3)
		ON CONFLICT (customer_id, product_id)
		DO UPDATE SET quantity = cart.quantity + EXCLUDED.quantity
	`, customerID, productID, quantity)
	if err != nil {
		return fmt.Errorf("add cart line: %w", err)
	}

	return nil
}

func (r *cartRepository) ListByCustomer(ctx context.Context, customerID int64) ([]domain.CartLine, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, customer_id, product_id, quantity, created_at
		FROM cart
		WHERE customer_id = $1
		ORDER BY id
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.CartLine, 0)
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ID, &line.CustomerID, &line.ProductID, &line.Quantity, &line.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart rows: %w", err)
	}

	return lines, nil
}

func (r *cartRepository) UpdateQuantity(ctx context.Context, lineID int64, quantity int32) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if quantity <= 0 {
		return domain.ErrLineQtyInvalid
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE cart SET quantity = $1 WHERE id = $2
	`, quantity, lineID)
	if err != nil {
		return fmt.Errorf("update cart quantity: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrCartLineNotFound
	}

	return nil
}

func (r *cartRepository) Remove(ctx context.Context, lineID int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM cart WHERE id = $1`, lineID)
	if err != nil {
		return fmt.Errorf("remove cart line: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrCartLineNotFound
	}

	return nil
}

var _ domain.CartRepository = (*cartRepository)(nil)
