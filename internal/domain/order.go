package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus — статус заказа. Хранится свободной строкой: переходы не
// валидируются, администратор может выставить произвольное значение.
// Константы ниже покрывают типовой жизненный цикл.
type OrderStatus string

const (
	// OrderStatusPending — начальный статус: заказ создан, оплата не подтверждена.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusPaid — оплата получена.
	OrderStatusPaid OrderStatus = "PAID"
	// OrderStatusShipped — заказ передан в доставку.
	OrderStatusShipped OrderStatus = "SHIPPED"
	// OrderStatusCompleted — заказ завершён.
	OrderStatusCompleted OrderStatus = "COMPLETED"
	// OrderStatusCancelled — заказ отменён.
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// OrderLine представляет одну позицию заказа (таблица order_item).
// Имя и цена товара — копия на момент оформления; позднейшие изменения
// каталога на позицию не влияют, сам товар может быть удалён.
type OrderLine struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int32
}

// Extension возвращает стоимость позиции: unit price × quantity.
func (l OrderLine) Extension() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt32(l.Quantity))
}

// Order агрегирует шапку заказа (таблица order_master) и его позиции.
// Шапка и позиции создаются атомарно и никогда не существуют порознь.
type Order struct {
	ID         int64
	CustomerID int64
	// CustomerName заполняется на путях чтения join'ом с customer; при
	// создании пустое.
	CustomerName string
	// TotalAmount вычисляется один раз при создании и далее неизменен.
	TotalAmount     decimal.Decimal
	ShippingAddress string
	Status          OrderStatus
	CreatedAt       time.Time
	Lines           []OrderLine
}

// ValidateInvariants проверяет согласованность заказа перед сохранением.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerID == 0 {
		errs = append(errs, ErrCustomerRequired)
	}
	if o.ShippingAddress == "" {
		errs = append(errs, ErrShippingAddressRequired)
	}
	if len(o.Lines) == 0 {
		errs = append(errs, ErrOrderLinesRequired)
	}

	// Сверяем сумму заказа с суммой позиций.
	calc := decimal.Zero
	for _, line := range o.Lines {
		if line.Quantity <= 0 {
			errs = append(errs, ErrLineQtyInvalid)
		}
		if line.UnitPrice.IsNegative() {
			errs = append(errs, ErrLinePriceInvalid)
		}
		calc = calc.Add(line.Extension())
	}
	if !calc.Equal(o.TotalAmount) {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}

// OrderLinesFromSnapshot строит позиции заказа из зарезолвленных строк корзины,
// фиксируя имя и цену товара на момент оформления.
func OrderLinesFromSnapshot(lines []ResolvedCartLine) []OrderLine {
	result := make([]OrderLine, 0, len(lines))
	for _, l := range lines {
		result = append(result, OrderLine{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
		})
	}
	return result
}
