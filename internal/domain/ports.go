package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OrderNotification — данные для уведомления о созданном заказе.
type OrderNotification struct {
	OrderID         int64
	CustomerID      int64
	Email           string
	TotalAmount     decimal.Decimal
	ShippingAddress string
	Lines           []OrderLine
}

// OrderNotifier отправляет покупателю подтверждение заказа. Вызывается
// только после коммита, отвязанно от критического пути запроса; ошибка
// уведомления никогда не влияет на заказ.
type OrderNotifier interface {
	NotifyOrderCreated(ctx context.Context, n OrderNotification) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository обслуживает релей событий: выборка pending-сообщений и
// отметки о результате публикации. Запись в outbox идёт через CheckoutTx.
type OutboxRepository interface {
	// Enqueue добавляет событие вне транзакции оформления: смена статуса
	// и удаление заказа публикуются по факту успешного изменения.
	Enqueue(ctx context.Context, msg OutboxMessage) error
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// DailySales — суммарные продажи за календарный день.
type DailySales struct {
	Date   time.Time
	Amount decimal.Decimal
}

// MonthlySales — суммарные продажи за месяц года.
type MonthlySales struct {
	Month  int
	Amount decimal.Decimal
}

// ProductSales — продажи товара: количество и выручка.
type ProductSales struct {
	ProductID int64
	Name      string
	Quantity  int64
	Revenue   decimal.Decimal
}

// StatusCount — количество заказов в статусе.
type StatusCount struct {
	Status OrderStatus
	Count  int64
}

// StatsRepository — read-only агрегирующие запросы для административной
// панели. Никаких обязательств согласованности сверх read-committed.
type StatsRepository interface {
	DailySales(ctx context.Context, from, to time.Time) ([]DailySales, error)
	MonthlySales(ctx context.Context, year int) ([]MonthlySales, error)
	TopProducts(ctx context.Context, limit int) ([]ProductSales, error)
	StatusBreakdown(ctx context.Context) ([]StatusCount, error)
}
