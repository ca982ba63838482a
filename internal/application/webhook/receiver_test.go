package webhook

import (
	"context"
	"sync"
	"testing"
	"time"

	apppay "github.com/Zhima-Mochi/minishop-checkout/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/ledger"
	domwebhook "github.com/Zhima-Mochi/minishop-checkout/internal/domain/webhook"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/obstest"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "whsec"

var fixedNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

type fakeReconciler struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeReconciler) Execute(_ context.Context, id string) (*apppay.ReconcileResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	if f.err != nil {
		return nil, f.err
	}
	return &apppay.ReconcileResult{Outcome: apppay.OutcomeApplied, PaymentID: "pay-1", Status: "approved"}, nil
}

func (f *fakeReconciler) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type env struct {
	store *memory.Store
	rec   *fakeReconciler
	tel   *obstest.Observability
	r     *Receiver
}

func newEnv(cfg Config) *env {
	e := &env{store: memory.NewStore(), rec: &fakeReconciler{}, tel: obstest.New()}
	if cfg.Secret == "" {
		cfg.Secret = secret
	}
	e.r = NewReceiver(e.store, e.rec, cfg, func() time.Time { return fixedNow }, e.tel)
	return e
}

func signed(dataID, requestID, body string) Notification {
	v := NewVerifier(secret)
	ts := "1700000000"
	return Notification{
		Signature: "ts=" + ts + ",v1=" + v.Sign(Manifest(dataID, requestID, ts)),
		RequestID: requestID,
		Body:      []byte(body),
	}
}

func (e *env) delivery(t *testing.T, id string) *domwebhook.Delivery {
	t.Helper()
	var d *domwebhook.Delivery
	require.NoError(t, e.store.WithinTx(context.Background(), func(ctx context.Context, tx ledger.Tx) error {
		var err error
		d, err = tx.Deliveries().Get(ctx, provider, id)
		return err
	}))
	return d
}

func TestReceiver_PaymentDispatched(t *testing.T) {
	e := newEnv(Config{})

	ack := e.r.Handle(context.Background(), signed("555", "req-1",
		`{"id": 9001, "type": "payment", "action": "payment.updated", "data": {"id": "555"}}`))

	assert.True(t, ack.Success)
	assert.Equal(t, "req-1", ack.RequestID)
	assert.Equal(t, []string{"555"}, e.rec.Calls())

	d := e.delivery(t, "9001")
	require.NotNil(t, d)
	assert.Equal(t, domwebhook.OutcomeProcessed, d.Outcome)
	assert.True(t, d.SignatureValid)
	assert.Equal(t, "555", d.ResourceID)
	assert.Equal(t, 1.0, e.tel.CounterFor(observability.MWebhookDeliveries).Value("topic=payment,outcome=processed"))
}

func TestReceiver_DuplicateDeliverySkipped(t *testing.T) {
	e := newEnv(Config{})
	body := `{"id": 9001, "type": "payment", "data": {"id": 555}}`

	first := e.r.Handle(context.Background(), signed("555", "req-1", body))
	second := e.r.Handle(context.Background(), signed("555", "req-2", body))

	assert.True(t, first.Success)
	assert.True(t, second.Success)
	assert.Equal(t, "already processed", second.Message)
	assert.Len(t, e.rec.Calls(), 1)
	assert.Len(t, e.tel.Log.Find("webhook_duplicate_delivery"), 1)
}

func TestReceiver_StatusChangesWithoutDeliveryIDReachReconciler(t *testing.T) {
	e := newEnv(Config{})
	body := `{"type": "payment", "action": "payment.updated", "data": {"id": "555"}}`

	pending := e.r.Handle(context.Background(), signed("555", "", body))
	approved := e.r.Handle(context.Background(), signed("555", "", body))

	assert.True(t, pending.Success)
	assert.True(t, approved.Success)
	assert.NotEqual(t, "already processed", approved.Message)
	assert.Equal(t, []string{"555", "555"}, e.rec.Calls())
	assert.Empty(t, e.tel.Log.Find("webhook_duplicate_delivery"))

	d := e.delivery(t, "payment:555:payment.updated:1700000000")
	require.NotNil(t, d)
	assert.Equal(t, domwebhook.OutcomeProcessed, d.Outcome)
}

func TestReceiver_InvalidSignatureRejected(t *testing.T) {
	e := newEnv(Config{})
	n := signed("555", "req-1", `{"id": 1, "type": "payment", "data": {"id": "555"}}`)
	n.Signature = "ts=1700000000,v1=00ff"

	ack := e.r.Handle(context.Background(), n)

	assert.False(t, ack.Success)
	assert.Empty(t, e.rec.Calls())
	d := e.delivery(t, "1")
	require.NotNil(t, d)
	assert.Equal(t, domwebhook.OutcomeRejectedSignature, d.Outcome)
	assert.Len(t, e.tel.Log.Find("webhook_signature_invalid"), 1)

	// A correctly signed retry of the same delivery is still processed.
	ack = e.r.Handle(context.Background(), signed("555", "req-1", `{"id": 1, "type": "payment", "data": {"id": "555"}}`))
	assert.True(t, ack.Success)
	assert.Equal(t, []string{"555"}, e.rec.Calls())
}

func TestReceiver_AllowUnsigned(t *testing.T) {
	e := newEnv(Config{AllowUnsigned: true})

	ack := e.r.Handle(context.Background(), Notification{
		RequestID: "req-1",
		Body:      []byte(`{"type": "payment", "data": {"id": "777"}}`),
	})

	assert.True(t, ack.Success)
	assert.Equal(t, []string{"777"}, e.rec.Calls())
	assert.Len(t, e.tel.Log.Find("webhook_signature_bypassed"), 1)
}

func TestReceiver_ResourceAndTopicFallbacks(t *testing.T) {
	e := newEnv(Config{})

	ack := e.r.Handle(context.Background(), signed("321", "req-9",
		`{"action": "payment.created", "resource": "https://api.provider.test/v1/payments/321"}`))

	assert.True(t, ack.Success)
	assert.Equal(t, []string{"321"}, e.rec.Calls())
	d := e.delivery(t, "req-9")
	require.NotNil(t, d)
	assert.Equal(t, TopicPayment, d.Topic)
}

func TestReceiver_QueryParameters(t *testing.T) {
	e := newEnv(Config{})
	n := signed("888", "req-q", ``)
	n.Query = map[string]string{"type": "payment", "data.id": "888"}

	ack := e.r.Handle(context.Background(), n)

	assert.True(t, ack.Success)
	assert.Equal(t, []string{"888"}, e.rec.Calls())
}

func TestReceiver_Ignored(t *testing.T) {
	cases := map[string]struct {
		dataID string
		body   string
		msg    string
	}{
		"merchant order": {"42", `{"topic": "merchant_order", "resource": "https://api.provider.test/merchant_orders/42"}`, "merchant order notification acknowledged"},
		"unknown topic":  {"5", `{"type": "subscription", "data": {"id": "5"}}`, "unsupported topic, ignored"},
		"no resource id": {"", `{"type": "payment"}`, "no resource id, ignored"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			e := newEnv(Config{})
			ack := e.r.Handle(context.Background(), signed(tc.dataID, "req-"+name, tc.body))
			assert.True(t, ack.Success)
			assert.Equal(t, tc.msg, ack.Message)
			assert.Empty(t, e.rec.Calls())
			d := e.delivery(t, "req-"+name)
			require.NotNil(t, d)
			assert.Equal(t, domwebhook.OutcomeIgnored, d.Outcome)
		})
	}
}

func TestReceiver_MalformedPayload(t *testing.T) {
	e := newEnv(Config{})

	ack := e.r.Handle(context.Background(), signed("", "req-1", `{not json`))

	assert.False(t, ack.Success)
	assert.Equal(t, "malformed payload", ack.Message)
	assert.Empty(t, e.rec.Calls())
}

func TestReceiver_ProcessingFailureAllowsRetry(t *testing.T) {
	e := newEnv(Config{})
	e.rec.err = apperr.New(apperr.Upstream, "provider down")
	body := `{"id": "d-1", "type": "payment", "data": {"id": "555"}}`

	ack := e.r.Handle(context.Background(), signed("555", "req-1", body))
	assert.False(t, ack.Success)
	assert.Equal(t, domwebhook.OutcomeFailed, e.delivery(t, "d-1").Outcome)
	assert.Len(t, e.tel.Log.Find("webhook_processing_failed"), 1)

	e.rec.err = nil
	ack = e.r.Handle(context.Background(), signed("555", "req-2", body))
	assert.True(t, ack.Success)
	assert.Equal(t, domwebhook.OutcomeProcessed, e.delivery(t, "d-1").Outcome)
	assert.Len(t, e.rec.Calls(), 2)
}
