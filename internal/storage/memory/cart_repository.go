package memory

import (
	"context"
	"sort"
	"time"

	"github.com/vladislavdragonenkov/mall/internal/domain"
)

type cartRepository struct {
	store *Store
}

// NewCartRepository возвращает in-memory реализацию CartRepository.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepository{store: store}
}

// AddLine сливает количество в существующую строку пары (customer, product) —
// дубликаты не создаются даже при повторных добавлениях.
func (r *cartRepository) AddLine(_ context.Context, customerID, productID int64, quantity int32) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		return domain.ErrLineQtyInvalid
	}

	for id, line := range s.cartLines {
		if line.CustomerID == customerID && line.ProductID == productID {
			line.Quantity += quantity
			s.cartLines[id] = line
			return nil
		}
	}

	s.cartSeq++
	s.cartLines[s.cartSeq] = domain.CartLine{
		ID:         s.cartSeq,
		CustomerID: customerID,
		ProductID:  productID,
		Quantity:   quantity,
		CreatedAt:  time.Now().UTC(),
	}

	return nil
}

func (r *cartRepository) ListByCustomer(_ context.Context, customerID int64) ([]domain.CartLine, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.CartLine, 0)
	for _, line := range s.cartLines {
		if line.CustomerID == customerID {
			result = append(result, line)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

func (r *cartRepository) UpdateQuantity(_ context.Context, lineID int64, quantity int32) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		return domain.ErrLineQtyInvalid
	}

	line, ok := s.cartLines[lineID]
	if !ok {
		return domain.ErrCartLineNotFound
	}
	line.Quantity = quantity
	s.cartLines[lineID] = line

	return nil
}

func (r *cartRepository) Remove(_ context.Context, lineID int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cartLines[lineID]; !ok {
		return domain.ErrCartLineNotFound
	}
	delete(s.cartLines, lineID)

	return nil
}

var _ domain.CartRepository = (*cartRepository)(nil)
