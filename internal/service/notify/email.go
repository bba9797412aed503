package notify

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/vladislavdragonenkov/mall/internal/domain"
)

// SMTPConfig описывает подключение к почтовому серверу.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailNotifier отправляет подтверждение заказа по SMTP.
type EmailNotifier struct {
	dialer *gomail.Dialer
	from   string
	logger *log.Entry
}

// NewEmailNotifier создаёт почтовый нотификатор.
func NewEmailNotifier(cfg SMTPConfig, logger *log.Entry) *EmailNotifier {
	if logger == nil {
		logger = log.WithField("component", "email-notifier")
	}
	return &EmailNotifier{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger,
	}
}

// NotifyOrderCreated отправляет письмо-подтверждение. Без email-адреса
// уведомление молча пропускается.
func (n *EmailNotifier) NotifyOrderCreated(ctx context.Context, notification domain.OrderNotification) error {
	if notification.Email == "" {
		n.logger.WithField("order_id", notification.OrderID).Debug("customer has no email, skipping notification")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", n.from)
	msg.SetHeader("To", notification.Email)
	msg.SetHeader("Subject", fmt.Sprintf("Order #%d confirmed", notification.OrderID))
	msg.SetBody("text/plain", renderOrderBody(notification))

	if err := n.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send order confirmation: %w", err)
	}

	n.logger.WithFields(log.Fields{
		"order_id": notification.OrderID,
		"to":       notification.Email,
	}).Info("order confirmation sent")

	return nil
}

// NotifyStatusChanged отправляет письмо о смене статуса заказа. Используется
// воркером уведомлений, который слушает события заказов из Kafka.
func (n *EmailNotifier) NotifyStatusChanged(ctx context.Context, email string, orderID int64, status string) error {
	if email == "" {
		n.logger.WithField("order_id", orderID).Debug("customer has no email, skipping notification")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", n.from)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", fmt.Sprintf("Order #%d update", orderID))
	msg.SetBody("text/plain", fmt.Sprintf("Your order #%d is now %s.\n", orderID, status))

	if err := n.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send status notification: %w", err)
	}

	n.logger.WithFields(log.Fields{
		"order_id": orderID,
		"status":   status,
		"to":       email,
	}).Info("status notification sent")

	return nil
}

func renderOrderBody(n domain.OrderNotification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your order #%d has been placed.\n\n", n.OrderID)
	for _, line := range n.Lines {
		fmt.Fprintf(&b, "  %s x %d = %s\n", line.ProductName, line.Quantity, line.Extension().StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", n.TotalAmount.StringFixed(2))
	fmt.Fprintf(&b, "Shipping address: %s\n", n.ShippingAddress)
	return b.String()
}

// NoopNotifier используется, когда SMTP не настроен.
type NoopNotifier struct {
	logger *log.Entry
}

// NewNoop создаёт нотификатор-заглушку.
func NewNoop(logger *log.Entry) *NoopNotifier {
	if logger == nil {
		logger = log.WithField("component", "noop-notifier")
	}
	return &NoopNotifier{logger: logger}
}

func (n *NoopNotifier) NotifyOrderCreated(_ context.Context, notification domain.OrderNotification) error {
	n.logger.WithFields(log.Fields{
		"order_id":    notification.OrderID,
		"customer_id": notification.CustomerID,
	}).Debug("notification skipped, smtp is not configured")
	return nil
}

var _ domain.OrderNotifier = (*EmailNotifier)(nil)
var _ domain.OrderNotifier = (*NoopNotifier)(nil)
