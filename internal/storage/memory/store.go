package memory

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/mall/internal/domain"
)

// Store — общее in-memory состояние всех репозиториев: аналог одной базы
// для локальной разработки и тестов. Репозитории-представления создаются
// поверх него так же, как PostgreSQL-репозитории поверх *postgres.Store.
type Store struct {
	mu sync.RWMutex

	products  map[int64]domain.Product
	cartLines map[int64]domain.CartLine
	orders    map[int64]domain.Order
	customers map[int64]domain.Customer
	outbox    []outboxRecord

	productSeq  int64
	cartSeq     int64
	orderSeq    int64
	lineSeq     int64
	customerSeq int64
}

type outboxRecord struct {
	msg       domain.OutboxMessage
	status    string
	attempts  int
	createdAt time.Time
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{
		products:  make(map[int64]domain.Product),
		cartLines: make(map[int64]domain.CartLine),
		orders:    make(map[int64]domain.Order),
		customers: make(map[int64]domain.Customer),
	}
}

// SetAdmin выставляет покупателю роль администратора. Репозиторного
// пути для этого нет намеренно: роль назначается вне приложения.
func (s *Store) SetAdmin(customerID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer, ok := s.customers[customerID]; ok {
		customer.Admin = true
		s.customers[customerID] = customer
	}
}

// snapshot снимает полную копию изменяемого состояния. Вызывается под mu.
func (s *Store) snapshot() *Store {
	cp := &Store{
		products:    make(map[int64]domain.Product, len(s.products)),
		cartLines:   make(map[int64]domain.CartLine, len(s.cartLines)),
		orders:      make(map[int64]domain.Order, len(s.orders)),
		customers:   make(map[int64]domain.Customer, len(s.customers)),
		outbox:      make([]outboxRecord, len(s.outbox)),
		productSeq:  s.productSeq,
		cartSeq:     s.cartSeq,
		orderSeq:    s.orderSeq,
		lineSeq:     s.lineSeq,
		customerSeq: s.customerSeq,
	}
	for k, v := range s.products {
		cp.products[k] = v
	}
	for k, v := range s.cartLines {
		cp.cartLines[k] = v
	}
	for k, v := range s.orders {
		lines := make([]domain.OrderLine, len(v.Lines))
		copy(lines, v.Lines)
		v.Lines = lines
		cp.orders[k] = v
	}
	for k, v := range s.customers {
		cp.customers[k] = v
	}
	copy(cp.outbox, s.outbox)
	return cp
}

// restore откатывает состояние до снятой копии. Вызывается под mu.
func (s *Store) restore(cp *Store) {
	s.products = cp.products
	s.cartLines = cp.cartLines
	s.orders = cp.orders
	s.customers = cp.customers
	s.outbox = cp.outbox
	s.productSeq = cp.productSeq
	s.cartSeq = cp.cartSeq
	s.orderSeq = cp.orderSeq
	s.lineSeq = cp.lineSeq
	s.customerSeq = cp.customerSeq
}
