package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/mall/internal/domain"
)

type statsRepository struct {
	db *sql.DB
}

// NewStatsRepository создаёт PostgreSQL-реализацию StatsRepository.
// Только чтение; работает поверх read-committed без дополнительных гарантий.
func NewStatsRepository(store *Store) domain.StatsRepository {
	return &statsRepository{db: store.DB()}
}

func (r *statsRepository) DailySales(ctx context.Context, from, to time.Time) ([]domain.DailySales, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT DATE(order_date) AS sale_date, SUM(total_amount) AS total_amount
		FROM order_master
		WHERE DATE(order_date) BETWEEN $1 AND $2
		GROUP BY DATE(order_date)
		ORDER BY sale_date
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("daily sales query: %w", err)
	}
	defer rows.Close()

	result := make([]domain.DailySales, 0)
	for rows.Next() {
		var s domain.DailySales
		if err := rows.Scan(&s.Date, &s.Amount); err != nil {
			return nil, fmt.Errorf("scan daily sales: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily sales: %w", err)
	}

	return result, nil
}

func (r *statsRepository) MonthlySales(ctx context.Context, year int) ([]domain.MonthlySales, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT EXTRACT(MONTH FROM order_date)::INT AS month, SUM(total_amount) AS total_amount
		FROM order_master
		WHERE EXTRACT(YEAR FROM order_date) = $1
		GROUP BY month
		ORDER BY month
	`, year)
	if err != nil {
		return nil, fmt.Errorf("monthly sales query: %w", err)
	}
	defer rows.Close()

	result := make([]domain.MonthlySales, 0)
	for rows.Next() {
		var s domain.MonthlySales
		if err := rows.Scan(&s.Month, &s.Amount); err != nil {
			return nil, fmt.Errorf("scan monthly sales: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monthly sales: %w", err)
	}

	return result, nil
}

func (r *statsRepository) TopProducts(ctx context.Context, limit int) ([]domain.ProductSales, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 10
	}

	// Имя берётся из снапшота позиции: товар к этому моменту может быть
	// переименован или удалён из каталога.
	rows, err := r.db.QueryContext(ctx, `
		SELECT oi.product_id, MAX(oi.product_name) AS name,
		       SUM(oi.quantity) AS total_quantity,
		       SUM(oi.price_at_purchase * oi.quantity) AS revenue
		FROM order_item oi
		GROUP BY oi.product_id
		ORDER BY total_quantity DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("top products query: %w", err)
	}
	defer rows.Close()

	result := make([]domain.ProductSales, 0, limit)
	for rows.Next() {
		var s domain.ProductSales
		if err := rows.Scan(&s.ProductID, &s.Name, &s.Quantity, &s.Revenue); err != nil {
			return nil, fmt.Errorf("scan top products: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top products: %w", err)
	}

	return result, nil
}

func (r *statsRepository) StatusBreakdown(ctx context.Context) ([]domain.StatusCount, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT order_status, COUNT(*) AS order_count
		FROM order_master
		GROUP BY order_status
		ORDER BY order_count DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("status breakdown query: %w", err)
	}
	defer rows.Close()

	result := make([]domain.StatusCount, 0)
	for rows.Next() {
		var s domain.StatusCount
		var status string
		if err := rows.Scan(&status, &s.Count); err != nil {
			return nil, fmt.Errorf("scan status breakdown: %w", err)
		}
		s.Status = domain.OrderStatus(status)
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status breakdown: %w", err)
	}

	return result, nil
}

var _ domain.StatsRepository = (*statsRepository)(nil)
