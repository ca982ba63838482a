package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	apppay "github.com/Zhima-Mochi/minishop-checkout/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/ledger"
	domwebhook "github.com/Zhima-Mochi/minishop-checkout/internal/domain/webhook"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	webhookService = "webhook-service"
	useCaseReceive = "webhook.receive"
	provider       = "payment_provider"

	TopicPayment       = "payment"
	TopicMerchantOrder = "merchant_order"
)

var (
	paymentResourceRE       = regexp.MustCompile(`/payments/(\d+)`)
	merchantOrderResourceRE = regexp.MustCompile(`/merchant_orders/(\d+)`)
)

// Reconciler applies a provider payment to local state.
type Reconciler interface {
	Execute(ctx context.Context, providerPaymentID string) (*apppay.ReconcileResult, error)
}

// Notification is one inbound delivery as received over HTTP.
type Notification struct {
	Signature string
	RequestID string
	Body      []byte
	// Query carries ids some providers send as URL parameters (data.id, id, type, topic).
	Query map[string]string
}

// Ack is returned to the provider. The transport always answers 200 with it.
type Ack struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

type payload struct {
	ID       json.RawMessage `json:"id"`
	Type     string          `json:"type"`
	Topic    string          `json:"topic"`
	Action   string          `json:"action"`
	Resource string          `json:"resource"`
	Data     struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
}

type Config struct {
	Secret string
	// AllowUnsigned processes deliveries whose signature fails to verify. Sandbox only.
	AllowUnsigned bool
}

// Receiver validates, deduplicates and dispatches provider notifications.
type Receiver struct {
	store      ledger.Store
	reconciler Reconciler
	verifier   Verifier
	cfg        Config
	now        application.Clock
	inst       *application.Instrument
	deliveries observability.Counter
}

func NewReceiver(store ledger.Store, reconciler Reconciler, cfg Config, now application.Clock, tel observability.Observability) *Receiver {
	if now == nil {
		now = application.SystemClock
	}
	if tel == nil {
		tel = observability.Nop()
	}
	return &Receiver{
		store:      store,
		reconciler: reconciler,
		verifier:   NewVerifier(cfg.Secret),
		cfg:        cfg,
		now:        now,
		inst:       application.NewInstrument(tel, webhookService, useCaseReceive),
		deliveries: tel.Metrics().Counter(observability.MWebhookDeliveries),
	}
}

// Handle never returns an error: every failure is logged and reported through the Ack.
func (r *Receiver) Handle(ctx context.Context, n Notification) (ack Ack) {
	ctx, call := r.inst.Start(ctx, "ReceiveWebhook", attribute.String("webhook.request_id", n.RequestID))
	ack = Ack{Success: true, RequestID: n.RequestID}
	d := &domwebhook.Delivery{Provider: provider, RequestID: n.RequestID, ReceivedAt: r.now()}
	var procErr error
	defer func() {
		if !ack.Success && procErr == nil {
			procErr = errors.New(ack.Message)
		}
		r.deliveries.Add(1,
			observability.L("topic", topicLabel(d.Topic)),
			observability.L("outcome", string(d.Outcome)),
		)
		call.Field("delivery_id", d.ID)
		call.Field("topic", d.Topic)
		call.Field("resource_id", d.ResourceID)
		call.Field("delivery_outcome", string(d.Outcome))
		call.End(procErr)
	}()

	var p payload
	if err := json.Unmarshal(n.Body, &p); err != nil && len(n.Query) == 0 {
		call.Logger().Warn("webhook_payload_malformed", observability.F("error", err))
		d.Outcome = domwebhook.OutcomeIgnored
		call.Fail("MALFORMED_PAYLOAD")
		return Ack{Success: false, Message: "malformed payload", RequestID: n.RequestID}
	}

	d.Topic, d.Action = topicOf(p, n.Query), p.Action
	d.ResourceID = resourceIDOf(p, n.Query, d.Topic)
	var stable bool
	d.ID, stable = deliveryID(p, n, d, r.now().UnixNano())
	logger := call.Logger().With(
		observability.F("delivery_id", d.ID),
		observability.F("topic", d.Topic),
		observability.F("resource_id", d.ResourceID),
	)

	if err := r.verifier.Verify(n.Signature, n.RequestID, d.ResourceID); err != nil {
		if !r.cfg.AllowUnsigned {
			logger.Error("webhook_signature_invalid", observability.F("error", err))
			d.SignatureValid = false
			d.Finish(domwebhook.OutcomeRejectedSignature, err, r.now())
			r.record(ctx, logger, d)
			call.Fail("SIGNATURE_INVALID")
			procErr = err
			return Ack{Success: false, Message: "invalid signature", RequestID: n.RequestID}
		}
		logger.Warn("webhook_signature_bypassed", observability.F("error", err))
	} else {
		d.SignatureValid = true
	}

	var prev *domwebhook.Delivery
	if stable {
		var err error
		if prev, err = r.lookup(ctx, d); err != nil {
			logger.Warn("webhook_delivery_lookup_failed", observability.F("error", err))
		}
	}
	if prev != nil && prev.Outcome.Done() {
		d.Outcome = prev.Outcome
		call.Status("DUPLICATE_DELIVERY")
		logger.Info("webhook_duplicate_delivery")
		ack.Message = "already processed"
		return ack
	}

	switch {
	case d.ResourceID == "":
		logger.Warn("webhook_missing_resource_id")
		d.Finish(domwebhook.OutcomeIgnored, nil, r.now())
		ack.Message = "no resource id, ignored"
	case d.Topic == TopicMerchantOrder:
		d.Finish(domwebhook.OutcomeIgnored, nil, r.now())
		ack.Message = "merchant order notification acknowledged"
	case d.Topic != TopicPayment:
		logger.Warn("webhook_unknown_topic", observability.F("action", d.Action))
		d.Finish(domwebhook.OutcomeIgnored, nil, r.now())
		ack.Message = "unsupported topic, ignored"
	default:
		res, err := r.reconciler.Execute(ctx, d.ResourceID)
		if err != nil {
			logger.Error("webhook_processing_failed", observability.F("error", err))
			d.Finish(domwebhook.OutcomeFailed, err, r.now())
			procErr = err
			ack = Ack{Success: false, Message: "processing failed, will be retried", RequestID: n.RequestID}
			break
		}
		d.Finish(domwebhook.OutcomeProcessed, nil, r.now())
		ack.Message = fmt.Sprintf("payment %s", res.Outcome)
	}

	r.record(ctx, logger, d)
	return ack
}

func (r *Receiver) lookup(ctx context.Context, d *domwebhook.Delivery) (*domwebhook.Delivery, error) {
	var prev *domwebhook.Delivery
	err := r.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		prev, err = tx.Deliveries().Get(ctx, d.Provider, d.ID)
		return err
	})
	return prev, err
}

func (r *Receiver) record(ctx context.Context, logger observability.Logger, d *domwebhook.Delivery) {
	err := r.store.WithinTx(context.WithoutCancel(ctx), func(ctx context.Context, tx ledger.Tx) error {
		return tx.Deliveries().Save(ctx, d)
	})
	if err != nil {
		logger.Warn("webhook_delivery_record_failed", observability.F("error", err))
	}
}

func topicOf(p payload, q map[string]string) string {
	for _, t := range []string{p.Type, p.Topic, q["type"], q["topic"]} {
		if t = strings.TrimSpace(t); t != "" {
			return t
		}
	}
	switch {
	case strings.HasPrefix(p.Action, "payment."):
		return TopicPayment
	case strings.HasPrefix(p.Action, "merchant_order."):
		return TopicMerchantOrder
	}
	return ""
}

func resourceIDOf(p payload, q map[string]string, topic string) string {
	if id := rawID(p.Data.ID); id != "" {
		return id
	}
	if id := q["data.id"]; id != "" {
		return id
	}
	if m := paymentResourceRE.FindStringSubmatch(p.Resource); m != nil {
		return m[1]
	}
	if m := merchantOrderResourceRE.FindStringSubmatch(p.Resource); m != nil {
		return m[1]
	}
	if topic == TopicMerchantOrder {
		if id := rawID(p.ID); id != "" {
			return id
		}
		return q["id"]
	}
	return ""
}

// deliveryID reports whether the key identifies the delivery itself. Without a
// payload id or request id, successive status changes of one payment look
// alike, so the key is made per-delivery and not used for dedup.
func deliveryID(p payload, n Notification, d *domwebhook.Delivery, nowNano int64) (string, bool) {
	if id := rawID(p.ID); id != "" && d.Topic != TopicMerchantOrder {
		return id, true
	}
	if n.RequestID != "" {
		return n.RequestID, true
	}
	ts, _ := ParseHeader(n.Signature)
	if ts == "" {
		ts = strconv.FormatInt(nowNano, 10)
	}
	return d.Topic + ":" + d.ResourceID + ":" + d.Action + ":" + ts, false
}

// rawID reads an id that providers send either as a JSON string or a number.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return num.String()
	}
	return ""
}

func topicLabel(t string) string {
	switch t {
	case TopicPayment, TopicMerchantOrder:
		return t
	case "":
		return "none"
	}
	return "other"
}
