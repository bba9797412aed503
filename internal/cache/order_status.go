package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mall/internal/domain"
)

const statusTTL = 30 * time.Second

// OrderStatusCache кэширует статусы заказов в Redis для путей чтения.
// Кэш строго вспомогательный: промах или недоступный Redis означают
// поход в основное хранилище, запись заказа кэш никогда не блокирует.
type OrderStatusCache struct {
	client *redis.Client
	logger *log.Entry
}

// NewOrderStatusCache создаёт кэш статусов. Допускает nil-клиент:
// все операции тогда вырождаются в промах.
func NewOrderStatusCache(client *redis.Client, logger *log.Entry) *OrderStatusCache {
	if logger == nil {
		logger = log.WithField("component", "order-status-cache")
	}
	return &OrderStatusCache{client: client, logger: logger}
}

// Get возвращает закэшированный статус заказа, идентификатор владельца
// и признак попадания. Владелец хранится вместе со статусом: проверка
// прав на чтение обязана работать и при попадании в кэш.
func (c *OrderStatusCache) Get(ctx context.Context, orderID int64) (domain.OrderStatus, int64, bool) {
	if c == nil || c.client == nil {
		return "", 0, false
	}

	value, err := c.client.Get(ctx, statusKey(orderID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).WithField("order_id", orderID).Warn("cache read failed")
		}
		return "", 0, false
	}

	status, ownerID, ok := parseStatusValue(value)
	if !ok {
		return "", 0, false
	}
	return status, ownerID, true
}

// Set записывает статус заказа и его владельца с коротким TTL.
func (c *OrderStatusCache) Set(ctx context.Context, orderID, ownerID int64, status domain.OrderStatus) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Set(ctx, statusKey(orderID), encodeStatusValue(ownerID, status), statusTTL).Err(); err != nil {
		c.logger.WithError(err).WithField("order_id", orderID).Warn("cache write failed")
	}
}

// Invalidate сбрасывает кэш после смены или удаления заказа.
func (c *OrderStatusCache) Invalidate(ctx context.Context, orderID int64) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, statusKey(orderID)).Err(); err != nil {
		c.logger.WithError(err).WithField("order_id", orderID).Warn("cache invalidation failed")
	}
}

func statusKey(orderID int64) string {
	return fmt.Sprintf("mall:order:%s:status", strconv.FormatInt(orderID, 10))
}

// encodeStatusValue сериализует пару владелец/статус в одно значение ключа.
func encodeStatusValue(ownerID int64, status domain.OrderStatus) string {
	return strconv.FormatInt(ownerID, 10) + "|" + string(status)
}

// parseStatusValue разбирает значение ключа; битое значение — промах.
func parseStatusValue(value string) (domain.OrderStatus, int64, bool) {
	rawOwner, status, ok := strings.Cut(value, "|")
	if !ok {
		return "", 0, false
	}
	ownerID, err := strconv.ParseInt(rawOwner, 10, 64)
	if err != nil {
		return "", 0, false
	}
	return domain.OrderStatus(status), ownerID, true
}
