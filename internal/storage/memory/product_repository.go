package memory

import (
	"context"
	"sort"
	"time"

	"github.com/vladislavdragonenkov/mall/internal/domain"
)

type productRepository struct {
	store *Store
}

// NewProductRepository возвращает in-memory реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{store: store}
}

func (r *productRepository) Create(_ context.Context, product domain.Product) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.productSeq++
	product.ID = s.productSeq
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	s.products[product.ID] = product

	return product.ID, nil
}

func (r *productRepository) Update(_ context.Context, product domain.Product) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[product.ID]
	if !ok || current.Deleted {
		return domain.ErrProductNotFound
	}
	product.CreatedAt = current.CreatedAt
	product.UpdatedAt = time.Now().UTC()
	s.products[product.ID] = product

	return nil
}

func (r *productRepository) SoftDelete(_ context.Context, id int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[id]
	if !ok || current.Deleted {
		return domain.ErrProductNotFound
	}
	current.Deleted = true
	current.UpdatedAt = time.Now().UTC()
	s.products[id] = current

	return nil
}

func (r *productRepository) Get(_ context.Context, id int64) (domain.Product, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok || product.Deleted {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

func (r *productRepository) GetByName(_ context.Context, name string) (domain.Product, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, product := range s.products {
		if !product.Deleted && product.Name == name {
			return product, nil
		}
	}
	return domain.Product{}, domain.ErrProductNotFound
}

func (r *productRepository) List(_ context.Context) ([]domain.Product, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Product, 0, len(s.products))
	for _, product := range s.products {
		if product.Deleted {
			continue
		}
		result = append(result, product)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })

	return result, nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
