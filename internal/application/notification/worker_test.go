package notification

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/customer"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	domship "github.com/Zhima-Mochi/minishop-checkout/internal/domain/shipping"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/obstest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type directSubscriber map[string]outbox.Handler

func (d directSubscriber) Subscribe(name string, h outbox.Handler) { d[name] = h }

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, m Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, m)
	return n.err
}

func newWorker(t *testing.T, n Notifier) (directSubscriber, *obstest.Observability) {
	t.Helper()
	store := memory.NewStore()
	store.PutUser(&customer.User{ID: "u-1", Email: "ana@example.com"})
	tel := obstest.New()
	sub := directSubscriber{}
	NewWorker(store, n, "logistics@shop.test", tel).Start(sub)
	require.Len(t, sub, len(Events()))
	return sub, tel
}

func TestWorker_CustomerNotifications(t *testing.T) {
	n := &recordingNotifier{}
	sub, _ := newWorker(t, n)

	require.NoError(t, sub["order.created"](context.Background(), domorder.CreatedEvent{UserID: "u-1", Number: "ORD-1", Total: decimal.NewFromInt(2420)}))
	require.NoError(t, sub["payment.approved"](context.Background(), dompay.ApprovedEvent{UserID: "u-1", OrderID: "o-1", Amount: decimal.NewFromInt(2420)}))
	require.NoError(t, sub["payment.rejected"](context.Background(), dompay.RejectedEvent{UserID: "u-1", OrderID: "o-1", Reason: "cc_rejected"}))

	require.Len(t, n.msgs, 3)
	assert.Equal(t, "order_confirmation", n.msgs[0].Template)
	assert.Equal(t, "2420.00", n.msgs[0].Data["total"])
	for _, m := range n.msgs {
		assert.Equal(t, "ana@example.com", m.To)
	}
	assert.Equal(t, "cc_rejected", n.msgs[2].Data["reason"])
}

func TestWorker_TeamNotifications(t *testing.T) {
	n := &recordingNotifier{}
	sub, _ := newWorker(t, n)

	require.NoError(t, sub["order.delivery_coordination"](context.Background(), domorder.DeliveryCoordinationEvent{
		Number: "ORD-1", Shipping: domorder.ShippingSnapshot{Recipient: "Ana", City: "CABA"},
	}))
	require.NoError(t, sub["shipment.booked"](context.Background(), domship.BookedEvent{OrderID: "o-1", TrackingNumber: "TRK-1"}))

	require.Len(t, n.msgs, 2)
	assert.Equal(t, "logistics@shop.test", n.msgs[0].To)
	assert.Equal(t, "CABA", n.msgs[0].Data["city"])
	assert.Equal(t, "TRK-1", n.msgs[1].Data["tracking_number"])
}

func TestWorker_FailuresAreLogged(t *testing.T) {
	n := &recordingNotifier{err: errors.New("smtp down")}
	sub, tel := newWorker(t, n)

	assert.NoError(t, sub["payment.approved"](context.Background(), dompay.ApprovedEvent{UserID: "u-1"}))
	assert.Len(t, tel.Log.Find("notification_failed"), 1)

	assert.Error(t, sub["payment.approved"](context.Background(), dompay.ApprovedEvent{UserID: "ghost"}))
	assert.Len(t, tel.Log.Find("notification_recipient_unresolved"), 1)
}

func TestLogNotifier(t *testing.T) {
	sub, tel := newWorker(t, LogNotifier{})
	require.NoError(t, sub["shipment.booked"](context.Background(), domship.BookedEvent{OrderID: "o-1"}))
	assert.Len(t, tel.Log.Find("notification_sent"), 1)
}
