package cart

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/mall/internal/domain"
)

// View — строка корзины, обогащённая данными товара для выдачи клиенту.
type View struct {
	LineID      int64
	ProductID   int64
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int32
	Subtotal    decimal.Decimal
}

// Service — операции покупательской корзины.
type Service struct {
	carts    domain.CartRepository
	products domain.ProductRepository
	logger   *log.Entry
}

// NewService создаёт сервис корзины.
func NewService(carts domain.CartRepository, products domain.ProductRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "cart")
	}
	return &Service{carts: carts, products: products, logger: logger}
}

// Add кладёт товар в корзину. Повторное добавление того же товара
// сливается в одну строку. Проверка остатка здесь рекомендательная:
// жёсткая гарантия даётся условным декрементом при оформлении.
func (s *Service) Add(ctx context.Context, customerID, productID int64, quantity int32) error {
	if quantity <= 0 {
		return domain.ErrLineQtyInvalid
	}

	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return err
	}

	current, err := s.quantityInCart(ctx, customerID, productID)
	if err != nil {
		return err
	}
	if current+quantity > product.StockQuantity {
		return fmt.Errorf("product %d: in cart %d, requested %d, in stock %d: %w",
			productID, current, quantity, product.StockQuantity, domain.ErrStockCeilingExceeded)
	}

	return s.carts.AddLine(ctx, customerID, productID, quantity)
}

// List возвращает корзину покупателя с актуальными ценами. Строки
// удалённых товаров пропускаются.
func (s *Service) List(ctx context.Context, customerID int64) ([]View, error) {
	lines, err := s.carts.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	views := make([]View, 0, len(lines))
	for _, line := range lines {
		product, err := s.products.Get(ctx, line.ProductID)
		if err != nil {
			s.logger.WithFields(log.Fields{
				"cart_line_id": line.ID,
				"product_id":   line.ProductID,
			}).Warn("cart line references unavailable product, skipping")
			continue
		}
		views = append(views, View{
			LineID:      line.ID,
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    line.Quantity,
			Subtotal:    product.Price.Mul(decimal.NewFromInt32(line.Quantity)),
		})
	}

	return views, nil
}

// UpdateQuantity меняет количество в строке корзины покупателя.
func (s *Service) UpdateQuantity(ctx context.Context, customerID, lineID int64, quantity int32) error {
	if quantity <= 0 {
		return domain.ErrLineQtyInvalid
	}
	line, err := s.ownedLine(ctx, customerID, lineID)
	if err != nil {
		return err
	}

	product, err := s.products.Get(ctx, line.ProductID)
	if err != nil {
		return err
	}
	if quantity > product.StockQuantity {
		return fmt.Errorf("product %d: requested %d, in stock %d: %w",
			line.ProductID, quantity, product.StockQuantity, domain.ErrStockCeilingExceeded)
	}

	return s.carts.UpdateQuantity(ctx, lineID, quantity)
}

// Remove убирает строку из корзины покупателя.
func (s *Service) Remove(ctx context.Context, customerID, lineID int64) error {
	if _, err := s.ownedLine(ctx, customerID, lineID); err != nil {
		return err
	}
	return s.carts.Remove(ctx, lineID)
}

// ownedLine находит строку корзины и проверяет, что она принадлежит
// покупателю. Чужая строка неотличима от несуществующей.
func (s *Service) ownedLine(ctx context.Context, customerID, lineID int64) (domain.CartLine, error) {
	lines, err := s.carts.ListByCustomer(ctx, customerID)
	if err != nil {
		return domain.CartLine{}, err
	}
	for _, line := range lines {
		if line.ID == lineID {
			return line, nil
		}
	}
	return domain.CartLine{}, domain.ErrCartLineNotFound
}

func (s *Service) quantityInCart(ctx context.Context, customerID, productID int64) (int32, error) {
	lines, err := s.carts.ListByCustomer(ctx, customerID)
	if err != nil {
		return 0, err
	}
	for _, line := range lines {
		if line.ProductID == productID {
			return line.Quantity, nil
		}
	}
	return 0, nil
}
