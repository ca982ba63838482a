package notification

import (
	"context"
	"fmt"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/customer"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/ledger"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	domship "github.com/Zhima-Mochi/minishop-checkout/internal/domain/shipping"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
)

// Message is a rendered notification. Template rendering happens downstream.
type Message struct {
	Channel  string
	To       string
	Template string
	Data     map[string]any
}

// Notifier delivers messages to customers or staff.
type Notifier interface {
	Notify(ctx context.Context, m Message) error
}

// LogNotifier writes each message as a structured log record.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, m Message) error {
	logctx.From(ctx).Info("notification_sent",
		observability.F("channel", m.Channel),
		observability.F("to", m.To),
		observability.F("template", m.Template),
		observability.F("data", m.Data),
	)
	return nil
}

// Worker turns committed domain events into notifications. Failures are logged and never retried.
type Worker struct {
	store     ledger.Store
	notifier  Notifier
	teamEmail string
	log       observability.Logger
}

func NewWorker(store ledger.Store, notifier Notifier, teamEmail string, tel observability.Observability) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Worker{
		store:     store,
		notifier:  notifier,
		teamEmail: teamEmail,
		log:       tel.Logger().With(observability.F("component", "notification_worker")),
	}
}

// Events lists the event names the worker handles.
func Events() []string {
	return []string{
		domorder.CreatedEvent{}.EventName(),
		domorder.DeliveryCoordinationEvent{}.EventName(),
		dompay.ApprovedEvent{}.EventName(),
		dompay.RejectedEvent{}.EventName(),
		domship.BookedEvent{}.EventName(),
	}
}

func (w *Worker) Start(sub outbox.Subscriber) {
	if sub == nil {
		return
	}
	for _, name := range Events() {
		sub.Subscribe(name, w.handle)
	}
}

func (w *Worker) handle(ctx context.Context, e outbox.Event) error {
	var (
		userID string
		msgs   []Message
	)
	switch ev := e.(type) {
	case domorder.CreatedEvent:
		userID = ev.UserID
		msgs = append(msgs, Message{Channel: "email", Template: "order_confirmation", Data: map[string]any{
			"order_number": ev.Number, "total": ev.Total.StringFixed(2), "items": ev.ItemCount,
		}})
	case domorder.DeliveryCoordinationEvent:
		msgs = append(msgs, Message{Channel: "email", To: w.teamEmail, Template: "delivery_coordination", Data: map[string]any{
			"order_number": ev.Number, "recipient": ev.Shipping.Recipient, "phone": ev.Shipping.Phone,
			"address": ev.Shipping.Address, "city": ev.Shipping.City, "instructions": ev.Shipping.Instructions,
		}})
	case dompay.ApprovedEvent:
		userID = ev.UserID
		msgs = append(msgs, Message{Channel: "email", Template: "payment_approved", Data: map[string]any{
			"order_id": ev.OrderID, "amount": ev.Amount.StringFixed(2), "currency": ev.Currency,
		}})
	case dompay.RejectedEvent:
		userID = ev.UserID
		msgs = append(msgs, Message{Channel: "email", Template: "payment_rejected", Data: map[string]any{
			"order_id": ev.OrderID, "reason": ev.Reason, "attempts": ev.RetryCount,
		}})
	case domship.BookedEvent:
		msgs = append(msgs, Message{Channel: "email", To: w.teamEmail, Template: "shipment_booked", Data: map[string]any{
			"order_id": ev.OrderID, "carrier": ev.Carrier, "tracking_number": ev.TrackingNumber,
		}})
	default:
		return nil
	}

	logger := logctx.FromOr(ctx, w.log)
	ctx = logctx.With(ctx, logger)
	if userID != "" {
		email, err := w.recipient(ctx, userID)
		if err != nil {
			logger.Warn("notification_recipient_unresolved", observability.F("user_id", userID), observability.F("error", err))
			return fmt.Errorf("notification: resolve recipient: %w", err)
		}
		for i := range msgs {
			msgs[i].To = email
		}
	}

	for _, m := range msgs {
		if m.To == "" {
			logger.Debug("notification_skipped_no_recipient", observability.F("template", m.Template))
			continue
		}
		if err := w.notifier.Notify(ctx, m); err != nil {
			logger.Warn("notification_failed", observability.F("template", m.Template), observability.F("error", err))
		}
	}
	return nil
}

func (w *Worker) recipient(ctx context.Context, userID string) (string, error) {
	var u *customer.User
	err := w.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		u, err = tx.Customers().GetUser(ctx, userID)
		return err
	})
	if err != nil {
		return "", err
	}
	return u.Email, nil
}
