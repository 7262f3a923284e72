package services

import (
	"fmt"
	"net/smtp"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/devforge-studio/devforge-api/config"
	"github.com/devforge-studio/devforge-api/models"
)

// Notification events
const (
	EventOrderCreated  = "order_created"
	EventStatusChanged = "status_changed"
)

// Notifier sends one email. Implementations must treat the call as
// best-effort; the dispatcher swallows every failure.
type Notifier interface {
	Send(to, subject, body string) error
}

var (
	notifierInstance Notifier
	notifierWG       sync.WaitGroup
)

// InitNotifier wires the SMTP notifier when mail is configured. Without an
// SMTP host the dispatcher logs events and sends nothing, which keeps
// development environments quiet.
func InitNotifier(cfg *config.Config) {
	if cfg.SMTPHost == "" {
		log.Info().Msg("SMTP not configured, order notifications disabled")
		return
	}
	notifierInstance = &SMTPNotifier{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		password: cfg.SMTPPassword,
	}
}

// SetNotifier sets the notifier instance (primarily for testing)
func SetNotifier(n Notifier) {
	notifierInstance = n
}

// Dispatch fans out an order event to email in the background. Fire and
// forget: failures are logged, never surfaced to the user and never retried.
// Notifications are not part of the money/fulfillment contract.
func Dispatch(event string, order *models.Order, recipient string) {
	if notifierInstance == nil || recipient == "" {
		return
	}

	subject, body := composeNotification(event, order)
	notifierWG.Add(1)
	go func() {
		defer notifierWG.Done()
		if err := notifierInstance.Send(recipient, subject, body); err != nil {
			log.Error().Err(err).
				Str("event", event).
				Uint("order_id", order.ID).
				Str("recipient", recipient).
				Msg("notification dispatch failed")
		}
	}()
}

// FlushNotifications waits for in-flight dispatches (used in tests)
func FlushNotifications() {
	notifierWG.Wait()
}

func composeNotification(event string, order *models.Order) (subject, body string) {
	switch event {
	case EventOrderCreated:
		subject = fmt.Sprintf("Order #%d received", order.ID)
		body = fmt.Sprintf("Your %s order #%d has been received and is currently %s.",
			order.Type, order.ID, order.Status)
	case EventStatusChanged:
		subject = fmt.Sprintf("Order #%d update", order.ID)
		body = fmt.Sprintf("Your order #%d is now %s.", order.ID, order.Status)
	default:
		subject = fmt.Sprintf("Order #%d", order.ID)
		body = fmt.Sprintf("There is an update on your order #%d.", order.ID)
	}
	return subject, body
}

// SMTPNotifier delivers notifications over plain SMTP
type SMTPNotifier struct {
	host     string
	port     string
	from     string
	password string
}

// Send sends a single plain-text email
func (n *SMTPNotifier) Send(to, subject, body string) error {
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		n.from, to, subject, body))

	var auth smtp.Auth
	if n.password != "" {
		auth = smtp.PlainAuth("", n.from, n.password, n.host)
	}
	addr := n.host + ":" + n.port
	if err := smtp.SendMail(addr, auth, n.from, []string{to}, msg); err != nil {
		return fmt.Errorf("sending mail via %s: %w", addr, err)
	}
	return nil
}
