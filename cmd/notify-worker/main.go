package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mall/internal/app"
	"github.com/vladislavdragonenkov/mall/internal/domain"
	"github.com/vladislavdragonenkov/mall/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/mall/internal/service/notify"
	"github.com/vladislavdragonenkov/mall/internal/storage/postgres"
)

const consumerGroup = "mall-notify"

// notify-worker слушает события заказов из Kafka и рассылает письма о
// смене статуса. Подтверждение о создании заказа уходит из API-процесса
// сразу после коммита, поэтому order.created здесь пропускается.
func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	cfg := app.LoadConfig()
	logger := log.WithField("component", "notify-worker")

	if cfg.KafkaBrokers == "" {
		logger.Fatal("KAFKA_BROKERS is required")
	}
	if cfg.PostgresDSN == "" {
		logger.Fatal("MALL_POSTGRES_DSN is required")
	}
	if cfg.SMTP.Host == "" {
		logger.Fatal("MALL_SMTP_HOST is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.WithError(err).Fatal("failed to open postgres")
	}
	defer store.Close()

	customers := postgres.NewCustomerRepository(store)
	notifier := notify.NewEmailNotifier(cfg.SMTP, logger)

	brokers := strings.Split(cfg.KafkaBrokers, ",")
	dlqProducer, err := kafka.NewProducer(brokers)
	if err != nil {
		logger.WithError(err).Fatal("failed to create kafka producer for dlq")
	}
	defer func() {
		if err := dlqProducer.Close(); err != nil {
			logger.WithError(err).Warn("failed to close dlq producer")
		}
	}()

	handler := func(ctx context.Context, message *sarama.ConsumerMessage) error {
		return handleOrderEvent(ctx, message, customers, notifier, logger)
	}

	consumer, err := kafka.NewConsumerWithDLQ(
		brokers,
		consumerGroup,
		[]string{kafka.TopicOrderEvents},
		handler,
		dlqProducer,
		3,
	)
	if err != nil {
		logger.WithError(err).Fatal("failed to create kafka consumer")
	}

	if err := consumer.Start(ctx); err != nil {
		logger.WithError(err).Fatal("failed to start kafka consumer")
	}

	<-ctx.Done()
	logger.Info("получен сигнал остановки, останавливаем consumer")
	if err := consumer.Stop(); err != nil {
		logger.WithError(err).Warn("consumer stopped with error")
	}
}

type statusNotifier interface {
	NotifyStatusChanged(ctx context.Context, email string, orderID int64, status string) error
}

func handleOrderEvent(
	ctx context.Context,
	message *sarama.ConsumerMessage,
	customers domain.CustomerRepository,
	notifier statusNotifier,
	logger *log.Entry,
) error {
	event, err := kafka.ParseOutboxEvent(message)
	if err != nil {
		return err
	}

	if event.EventType != kafka.EventTypeOrderStatusChanged {
		logger.WithFields(log.Fields{
			"event_type": event.EventType,
			"order_id":   event.OrderID,
		}).Debug("event does not need a notification, skipping")
		return nil
	}

	customer, err := customers.Get(ctx, event.CustomerID)
	if err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			logger.WithField("customer_id", event.CustomerID).Warn("customer gone, dropping notification")
			return nil
		}
		return err
	}

	return notifier.NotifyStatusChanged(ctx, customer.Email, event.OrderID, event.Status)
}
