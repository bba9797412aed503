package catalog

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mall/internal/domain"
)

// Service — операции каталога товаров. Изменяющие операции доступны
// только администратору; проверка роли лежит на транспортном слое.
type Service struct {
	products domain.ProductRepository
	logger   *log.Entry
}

// NewService создаёт сервис каталога.
func NewService(products domain.ProductRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "catalog")
	}
	return &Service{products: products, logger: logger}
}

// Create добавляет товар в каталог. Если неудалённый товар с таким именем
// уже есть, строка не дублируется: поступившее количество прибавляется к
// остатку, а описание, цена и картинка перезаписываются.
func (s *Service) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	if errs := product.ValidateInvariants(); len(errs) > 0 {
		return domain.Product{}, errs[0]
	}

	existing, err := s.products.GetByName(ctx, product.Name)
	switch {
	case err == nil:
		restocked := existing
		restocked.StockQuantity += product.StockQuantity
		restocked.Description = product.Description
		restocked.Price = product.Price
		restocked.ImageURL = product.ImageURL
		if err := s.products.Update(ctx, restocked); err != nil {
			return domain.Product{}, err
		}

		s.logger.WithFields(log.Fields{
			"product_id": restocked.ID,
			"name":       restocked.Name,
			"added":      product.StockQuantity,
			"stock":      restocked.StockQuantity,
		}).Info("product restocked")

		return restocked, nil
	case !errors.Is(err, domain.ErrProductNotFound):
		return domain.Product{}, err
	}

	id, err := s.products.Create(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	product.ID = id

	s.logger.WithFields(log.Fields{
		"product_id": id,
		"name":       product.Name,
	}).Info("product created")

	return product, nil
}

// Update изменяет карточку товара.
func (s *Service) Update(ctx context.Context, product domain.Product) error {
	if errs := product.ValidateInvariants(); len(errs) > 0 {
		return errs[0]
	}
	return s.products.Update(ctx, product)
}

// Delete мягко удаляет товар: строка остаётся ради ссылок из истории
// заказов, но из выдачи и оформления исчезает.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.products.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("product_id", id).Info("product soft deleted")
	return nil
}

// Get возвращает товар по идентификатору.
func (s *Service) Get(ctx context.Context, id int64) (domain.Product, error) {
	return s.products.Get(ctx, id)
}

// List возвращает все не удалённые товары.
func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	return s.products.List(ctx)
}
