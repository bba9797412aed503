package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine представляет позицию покупательской корзины (таблица cart).
// На пару (customer_id, product_id) существует не более одной активной строки;
// конкурентные добавления одного товара сливаются по количеству.
type CartLine struct {
	ID         int64
	CustomerID int64
	ProductID  int64
	Quantity   int32
	CreatedAt  time.Time
}

// ResolvedCartLine — строка корзины, обогащённая актуальными данными товара:
// кандидат в позицию заказа. Цена и имя берутся на момент резолва и
// копируются в заказ (price-at-purchase).
type ResolvedCartLine struct {
	LineID      int64
	ProductID   int64
	ProductName string
	UnitPrice   decimal.Decimal
	Stock       int32
	Quantity    int32
}

// Extension возвращает стоимость строки: unit price × quantity.
func (l ResolvedCartLine) Extension() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt32(l.Quantity))
}

// TotalAmount считает точную десятичную сумму по набору строк.
func TotalAmount(lines []ResolvedCartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Extension())
	}
	return total
}
