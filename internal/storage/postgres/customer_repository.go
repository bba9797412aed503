package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/mall/internal/domain"
)

type customerRepository struct {
	db *sql.DB
}

// NewCustomerRepository создаёт PostgreSQL-реализацию CustomerRepository.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepository{db: store.DB()}
}

func (r *customerRepository) Create(ctx context.Context, customer domain.Customer) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO customer (username, password_hash, email, phone, is_admin)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`,
		customer.Username, customer.PasswordHash, customer.Email, customer.Phone, customer.Admin,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrUsernameTaken
		}
		return 0, fmt.Errorf("insert customer: %w", err)
	}

	return id, nil
}

func (r *customerRepository) GetByUsername(ctx context.Context, username string) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, email, phone, is_admin, created_at
		FROM customer
		WHERE username = $1
	`, username))
}

func (r *customerRepository) Get(ctx context.Context, id int64) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, email, phone, is_admin, created_at
		FROM customer
		WHERE id = $1
	`, id))
}

func (r *customerRepository) UpdateProfile(ctx context.Context, id int64, email, phone string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE customer SET email = $1, phone = $2 WHERE id = $3
	`, email, phone, id)
	if err != nil {
		return fmt.Errorf("update customer profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update customer profile: rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrCustomerNotFound
	}

	return nil
}

func (r *customerRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var count int
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM customer WHERE username = $1
	`, username).Scan(&count); err != nil {
		return false, fmt.Errorf("count username: %w", err)
	}

	return count > 0, nil
}

func (r *customerRepository) scanOne(row *sql.Row) (domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.Username, &c.PasswordHash, &c.Email, &c.Phone, &c.Admin, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}
		return domain.Customer{}, fmt.Errorf("select customer: %w", err)
	}
	return c, nil
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
