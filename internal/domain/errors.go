package domain

import "errors"

var (
	// Ошибка отсутствующего идентификатора клиента.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка отсутствующего адреса доставки.
	ErrShippingAddressRequired = errors.New("shipping address is required")
	// Ошибка пустого набора выбранных строк корзины.
	ErrNoCartLinesSelected = errors.New("at least one cart line must be selected")
	// ErrEmptyCartSnapshot возвращается, когда после резолва не осталось
	// ни одной валидной строки для заказа.
	ErrEmptyCartSnapshot = errors.New("no valid cart lines to order")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrOrderLinesRequired = errors.New("order must contain at least one line")
	// Ошибка при некорректном количестве в позиции (<= 0).
	ErrLineQtyInvalid = errors.New("line quantity must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrLinePriceInvalid = errors.New("line price must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrTotalMismatch = errors.New("order total does not match line sum")
	// Ошибка отсутствующего имени товара.
	ErrProductNameRequired = errors.New("product name is required")
	// Ошибка отрицательной цены товара.
	ErrProductPriceNegative = errors.New("product price must be non-negative")
	// Ошибка отрицательного остатка на складе.
	ErrStockNegative = errors.New("stock quantity must be non-negative")

	// ErrInsufficientStock сигнализирует, что условный декремент не затронул
	// ни одной строки: остатка не хватает либо товар не существует/удалён.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrCartLineVanished — аномалия хранилища: строка корзины была в
	// снапшоте, но удалить её не удалось.
	ErrCartLineVanished = errors.New("resolved cart line vanished before consumption")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrProductNotFound возвращается, если товар не найден или мягко удалён.
	ErrProductNotFound = errors.New("product not found")
	// ErrCartLineNotFound возвращается, если строка корзины не найдена.
	ErrCartLineNotFound = errors.New("cart line not found")
	// ErrCustomerNotFound возвращается, если покупатель не найден.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrUsernameTaken возвращается при попытке регистрации занятого имени.
	ErrUsernameTaken = errors.New("username is already taken")
	// ErrInvalidCredentials — неверная пара логин/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPermissionDenied — запрос не от владельца ресурса и не от администратора.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrStockCeilingExceeded — добавление в корзину превысило бы остаток товара.
	ErrStockCeilingExceeded = errors.New("requested quantity exceeds available stock")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsInsufficientStock проверяет, является ли ошибка отказом резервирования.
func IsInsufficientStock(err error) bool {
	return errors.Is(err, ErrInsufficientStock)
}

// IsValidation проверяет, относится ли ошибка к классу валидационных:
// такие ошибки выявляются до открытия транзакции и не требуют отката.
func IsValidation(err error) bool {
	return errors.Is(err, ErrCustomerRequired) ||
		errors.Is(err, ErrShippingAddressRequired) ||
		errors.Is(err, ErrNoCartLinesSelected) ||
		errors.Is(err, ErrEmptyCartSnapshot)
}
