package domain

import "context"

// ProductRepository описывает требования к хранилищу каталога.
type ProductRepository interface {
	// Create сохраняет новый товар и возвращает сгенерированный идентификатор.
	Create(ctx context.Context, product Product) (int64, error)
	// Update перезаписывает атрибуты товара. Мягко удалённые товары не обновляются.
	Update(ctx context.Context, product Product) error
	// SoftDelete помечает товар удалённым, не трогая ссылающиеся заказы.
	SoftDelete(ctx context.Context, id int64) error
	// Get возвращает товар или ErrProductNotFound, если его нет или он удалён.
	Get(ctx context.Context, id int64) (Product, error)
	// GetByName ищет неудалённый товар по точному имени.
	GetByName(ctx context.Context, name string) (Product, error)
	// List возвращает все неудалённые товары, новые первыми.
	List(ctx context.Context) ([]Product, error)
}

// CartRepository описывает операции над корзиной покупателя.
type CartRepository interface {
	// AddLine добавляет товар в корзину. Если строка для пары
	// (customer, product) уже есть, количества сливаются, дубликат не создаётся.
	AddLine(ctx context.Context, customerID, productID int64, quantity int32) error
	// ListByCustomer возвращает строки корзины покупателя.
	ListByCustomer(ctx context.Context, customerID int64) ([]CartLine, error)
	// UpdateQuantity выставляет новое количество строки.
	UpdateQuantity(ctx context.Context, lineID int64, quantity int32) error
	// Remove удаляет строку корзины.
	Remove(ctx context.Context, lineID int64) error
}

// OrderRepository описывает пути чтения и администрирования заказов.
// Создание заказа идёт не здесь, а через CheckoutStore: ему нужна одна
// транзакция на резервирование, вставку и потребление корзины.
type OrderRepository interface {
	// Get возвращает заказ с позициями или ErrOrderNotFound.
	Get(ctx context.Context, id int64) (Order, error)
	// ListByCustomer возвращает заказы клиента с позициями, новые первыми.
	ListByCustomer(ctx context.Context, customerID int64) ([]Order, error)
	// ListAll возвращает все заказы с позициями (административный путь).
	ListAll(ctx context.Context) ([]Order, error)
	// UpdateStatus переводит заказ в новый статус. Повторное применение того
	// же статуса — no-op успех. false означает, что заказа нет.
	UpdateStatus(ctx context.Context, id int64, status OrderStatus) (bool, error)
	// Delete удаляет позиции и шапку заказа в одной транзакции. Проверка
	// прав (владелец либо администратор) предшествует первой записи.
	Delete(ctx context.Context, id, requesterID int64, isAdmin bool) (bool, error)
}

// CustomerRepository описывает хранилище учётных записей.
type CustomerRepository interface {
	// Create сохраняет покупателя и возвращает сгенерированный идентификатор.
	Create(ctx context.Context, customer Customer) (int64, error)
	// GetByUsername возвращает покупателя по имени или ErrCustomerNotFound.
	GetByUsername(ctx context.Context, username string) (Customer, error)
	// Get возвращает покупателя по идентификатору или ErrCustomerNotFound.
	Get(ctx context.Context, id int64) (Customer, error)
	// UsernameTaken сообщает, занято ли имя пользователя.
	UsernameTaken(ctx context.Context, username string) (bool, error)
	// UpdateProfile перезаписывает контактные данные покупателя.
	// Возвращает ErrCustomerNotFound, если учётной записи нет.
	UpdateProfile(ctx context.Context, id int64, email, phone string) error
}

// CheckoutTx — операции, доступные внутри одной единицы работы оформления
// заказа. Все методы выполняются на активной транзакции владельца; ни один
// не открывает собственную.
type CheckoutTx interface {
	// ReserveStock атомарно уменьшает остаток товара на quantity, только если
	// остатка хватает: одиночный условный UPDATE вместо read-then-write.
	// Возвращает число затронутых строк; ноль — нехватка остатка либо
	// несуществующий товар.
	ReserveStock(ctx context.Context, productID int64, quantity int32) (int64, error)
	// InsertOrderHeader сохраняет шапку заказа со статусом PENDING и
	// возвращает сгенерированный идентификатор.
	InsertOrderHeader(ctx context.Context, order Order) (int64, error)
	// InsertOrderLines сохраняет все позиции заказа одной пакетной записью.
	InsertOrderLines(ctx context.Context, orderID int64, lines []OrderLine) error
	// DeleteCartLine удаляет потреблённую строку корзины и возвращает число
	// затронутых строк.
	DeleteCartLine(ctx context.Context, lineID int64) (int64, error)
	// EnqueueOutbox записывает событие в transactional outbox той же
	// транзакцией, что и заказ.
	EnqueueOutbox(ctx context.Context, msg OutboxMessage) error
}

// CheckoutStore — граница хранилища для координатора оформления заказа.
type CheckoutStore interface {
	// ResolveCartSnapshot возвращает строки корзины покупателя из запрошенного
	// набора идентификаторов, обогащённые актуальными именем, ценой и
	// остатком товара. Read-only; структурно невалидные строки исключаются
	// с предупреждением в логе.
	ResolveCartSnapshot(ctx context.Context, customerID int64, lineIDs []int64) ([]ResolvedCartLine, error)
	// WithinTx исполняет fn внутри одной атомарной единицы работы: при ошибке
	// fn вся единица откатывается, соединение освобождается безусловно.
	WithinTx(ctx context.Context, fn func(tx CheckoutTx) error) error
}
