package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/vladislavdragonenkov/mall/internal/domain"
)

type orderRepository struct {
	store *Store
}

// NewOrderRepository возвращает in-memory реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{store: store}
}

func (r *orderRepository) Get(_ context.Context, id int64) (domain.Order, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return r.withCustomerName(order), nil
}

func (r *orderRepository) ListByCustomer(_ context.Context, customerID int64) ([]domain.Order, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Order, 0)
	for _, order := range s.orders {
		if order.CustomerID == customerID {
			result = append(result, r.withCustomerName(order))
		}
	}
	sortOrders(result)

	return result, nil
}

func (r *orderRepository) ListAll(_ context.Context) ([]domain.Order, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Order, 0, len(s.orders))
	for _, order := range s.orders {
		result = append(result, r.withCustomerName(order))
	}
	sortOrders(result)

	return result, nil
}

func (r *orderRepository) UpdateStatus(_ context.Context, id int64, status domain.OrderStatus) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return false, nil
	}
	// Повторное применение того же статуса — no-op успех.
	order.Status = status
	s.orders[id] = order

	return true, nil
}

func (r *orderRepository) Delete(_ context.Context, id, requesterID int64, isAdmin bool) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return false, nil
	}
	if order.CustomerID != requesterID && !isAdmin {
		return false, domain.ErrPermissionDenied
	}
	delete(s.orders, id)

	return true, nil
}

func (r *orderRepository) withCustomerName(order domain.Order) domain.Order {
	if customer, ok := r.store.customers[order.CustomerID]; ok {
		order.CustomerName = customer.Username
	} else {
		order.CustomerName = fmt.Sprintf("Customer %d", order.CustomerID)
	}
	lines := make([]domain.OrderLine, len(order.Lines))
	copy(lines, order.Lines)
	order.Lines = lines
	return order
}

func sortOrders(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}

var _ domain.OrderRepository = (*orderRepository)(nil)
