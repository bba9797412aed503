package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product представляет товар каталога (таблица product).
type Product struct {
	ID          int64
	Name        string
	Description string
	// Price — цена за единицу. Всегда decimal: бинарная плавающая точка
	// для денег недопустима.
	Price decimal.Decimal
	// StockQuantity — авторитетный остаток на складе, никогда не < 0.
	// Инвариант обеспечивается условным декрементом, а не проверкой в коде.
	StockQuantity int32
	ImageURL      string
	// Deleted — мягкое удаление; удалённые товары не видны в каталоге
	// и не участвуют в резервировании.
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateInvariants проверяет базовые инварианты товара и возвращает список замечаний.
func (p *Product) ValidateInvariants() []error {
	var errs []error

	if p.Name == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.Price.IsNegative() {
		errs = append(errs, ErrProductPriceNegative)
	}
	if p.StockQuantity < 0 {
		errs = append(errs, ErrStockNegative)
	}

	return errs
}
