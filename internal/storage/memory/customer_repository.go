package memory

import (
	"context"
	"time"

	"github.com/vladislavdragonenkov/mall/internal/domain"
)

type customerRepository struct {
	store *Store
}

// NewCustomerRepository возвращает in-memory реализацию CustomerRepository.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepository{store: store}
}

func (r *customerRepository) Create(_ context.Context, customer domain.Customer) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.customers {
		if existing.Username == customer.Username {
			return 0, domain.ErrUsernameTaken
		}
	}

	s.customerSeq++
	customer.ID = s.customerSeq
	customer.CreatedAt = time.Now().UTC()
	s.customers[customer.ID] = customer

	return customer.ID, nil
}

func (r *customerRepository) GetByUsername(_ context.Context, username string) (domain.Customer, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, customer := range s.customers {
		if customer.Username == username {
			return customer, nil
		}
	}
	return domain.Customer{}, domain.ErrCustomerNotFound
}

func (r *customerRepository) Get(_ context.Context, id int64) (domain.Customer, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return customer, nil
}

func (r *customerRepository) UpdateProfile(_ context.Context, id int64, email, phone string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customers[id]
	if !ok {
		return domain.ErrCustomerNotFound
	}
	customer.Email = email
	customer.Phone = phone
	s.customers[id] = customer

	return nil
}

func (r *customerRepository) UsernameTaken(_ context.Context, username string) (bool, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, customer := range s.customers {
		if customer.Username == username {
			return true, nil
		}
	}
	return false, nil
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
