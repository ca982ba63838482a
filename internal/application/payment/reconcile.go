package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/ledger"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"

	"go.opentelemetry.io/otel/attribute"
)

const useCaseReconcile = "payment.reconcile"

type ReconcileOutcome string

const (
	OutcomeApplied          ReconcileOutcome = "applied"
	OutcomeAlreadyProcessed ReconcileOutcome = "already_processed"
	OutcomePaymentNotFound  ReconcileOutcome = "payment_not_found"
)

type ReconcileResult struct {
	Outcome   ReconcileOutcome
	PaymentID string
	OrderID   string
	Status    dompay.Status
}

// ReconcileUseCase converges a local payment and its order with the provider's view.
type ReconcileUseCase struct {
	store     ledger.Store
	gateway   dompay.Gateway
	locker    dompay.Locker
	ids       application.IDGenerator
	publisher domoutbox.Publisher
	cfg       Config
	now       application.Clock
	inst      *application.Instrument
}

func NewReconcileUseCase(
	store ledger.Store,
	gateway dompay.Gateway,
	locker dompay.Locker,
	ids application.IDGenerator,
	publisher domoutbox.Publisher,
	cfg Config,
	now application.Clock,
	tel observability.Observability,
) *ReconcileUseCase {
	if now == nil {
		now = application.SystemClock
	}
	return &ReconcileUseCase{
		store:     store,
		gateway:   gateway,
		locker:    locker,
		ids:       ids,
		publisher: publisher,
		cfg:       cfg.withDefaults(),
		now:       now,
		inst:      application.NewInstrument(tel, paymentService, useCaseReconcile),
	}
}

// Execute fetches the provider payment and applies it locally. An unknown local payment
// is reported through the result, not as an error.
func (uc *ReconcileUseCase) Execute(ctx context.Context, providerPaymentID string) (_ *ReconcileResult, err error) {
	ctx, call := uc.inst.Start(ctx, "ProcessPaymentWebhook", attribute.String("payment.provider_id", providerPaymentID))
	defer func() { call.End(err) }()

	if err = apperr.Validate("invalid reconciliation input", apperr.Required("provider_payment_id", providerPaymentID)); err != nil {
		call.Fail("INVALID_INPUT")
		return nil, err
	}

	remote, err := uc.fetch(ctx, call, providerPaymentID)
	if err != nil {
		call.Fail("PROVIDER_FETCH_FAILED")
		return nil, err
	}
	call.Field("remote_status", string(remote.Status))
	call.Field("external_reference", remote.ExternalReference)

	lockKey := "payment-reconcile:" + remote.ID
	if remote.ExternalReference != "" {
		lockKey = "payment-reconcile:order:" + remote.ExternalReference
	}
	if uc.locker != nil {
		unlock, lockErr := uc.locker.Lock(ctx, lockKey, uc.cfg.LockTTL)
		if lockErr != nil {
			call.Fail("LOCK_FAILED")
			return nil, apperr.Wrap(apperr.Internal, lockErr, "payment: acquire reconciliation lock")
		}
		defer func() {
			if uerr := unlock(context.WithoutCancel(ctx)); uerr != nil {
				call.Logger().Warn("payment_lock_release_failed", observability.F("key", lockKey), observability.F("error", uerr))
			}
		}()
	}

	var (
		res    *ReconcileResult
		events []domoutbox.Event
	)
	err = uc.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var txErr error
		res, events, txErr = uc.apply(ctx, tx, remote)
		return txErr
	})
	if err != nil {
		call.Fail("PERSIST_FAILED")
		return nil, err
	}

	call.Status(string(res.Outcome))
	call.Field("payment_id", res.PaymentID)
	call.Field("order_id", res.OrderID)
	if res.Outcome == OutcomePaymentNotFound {
		call.Logger().Warn("payment_webhook_unknown_payment",
			observability.F("provider_payment_id", remote.ID),
			observability.F("external_reference", remote.ExternalReference),
		)
	}

	for _, e := range events {
		_ = call.Publish(uc.publisher, e)
	}
	return res, nil
}

func (uc *ReconcileUseCase) fetch(ctx context.Context, call *application.Call, id string) (dompay.RemotePayment, error) {
	var remote dompay.RemotePayment
	err := uc.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		start := time.Now()
		var err error
		remote, err = uc.gateway.GetPayment(ctx, id)
		uc.inst.External(providerPeer, "get_payment", start, err)
		return err
	}, func(attempt int, err error) {
		call.Logger().Warn("provider_fetch_retry",
			observability.F("provider_payment_id", id),
			observability.F("attempt", attempt),
			observability.F("error", err),
		)
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.Internal {
			err = apperr.Wrap(apperr.Upstream, err, "payment: fetch provider payment")
		}
		return dompay.RemotePayment{}, err
	}
	if remote.ID == "" {
		remote.ID = id
	}
	return remote, nil
}

func (uc *ReconcileUseCase) locate(ctx context.Context, tx ledger.Tx, remote dompay.RemotePayment) (*dompay.Payment, error) {
	if remote.ExternalReference != "" {
		p, err := tx.Payments().GetLatestByOrder(ctx, remote.ExternalReference)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, dompay.ErrNotFound) {
			return nil, err
		}
	}
	return tx.Payments().GetByProviderID(ctx, remote.ID)
}

func (uc *ReconcileUseCase) apply(ctx context.Context, tx ledger.Tx, remote dompay.RemotePayment) (*ReconcileResult, []domoutbox.Event, error) {
	found, err := uc.locate(ctx, tx, remote)
	if errors.Is(err, dompay.ErrNotFound) {
		return &ReconcileResult{Outcome: OutcomePaymentNotFound, OrderID: remote.ExternalReference, Status: remote.Status}, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	p, err := tx.Payments().GetForUpdate(ctx, found.ID)
	if err != nil {
		return nil, nil, err
	}
	res := &ReconcileResult{Outcome: OutcomeAlreadyProcessed, PaymentID: p.ID, OrderID: p.OrderID, Status: p.Status}
	if p.WebhookProcessed {
		return res, nil, nil
	}

	o, err := tx.Orders().GetForUpdate(ctx, p.OrderID)
	if err != nil {
		return nil, nil, fmt.Errorf("payment: load order %s: %w", p.OrderID, err)
	}

	now := uc.now()
	p.ProviderPaymentID = remote.ID
	p.WebhookReceivedAt = &now
	if len(remote.Raw) > 0 {
		p.Metadata = remote.Raw
	}
	if remote.Currency != "" {
		p.Currency = remote.Currency
	}

	var events []domoutbox.Event
	switch remote.Status {
	case dompay.StatusApproved:
		p.Approve(remote.StatusDetail, remote.PaymentMethodID, now)
		o.MarkPaid(now)
		amount := remote.Amount
		if !amount.IsPositive() {
			amount = p.Amount
		}
		if err := tx.Payments().AppendTransaction(ctx, &dompay.Transaction{
			ID:          uc.ids.NewID(),
			PaymentID:   p.ID,
			Type:        dompay.TxCharge,
			Amount:      amount,
			Status:      string(dompay.StatusApproved),
			Description: "payment approved by provider",
			ExternalID:  remote.ID,
			CreatedAt:   now,
		}); err != nil {
			return nil, nil, fmt.Errorf("payment: append charge: %w", err)
		}
		events = append(events, dompay.NewApprovedEvent(p, now))
	case dompay.StatusRejected:
		p.Reject(remote.StatusDetail, now)
		events = append(events, dompay.NewRejectedEvent(p, now))
	case dompay.StatusCancelled:
		p.SetStatus(dompay.StatusCancelled, remote.StatusDetail, now)
		o.SetPaymentStatus(domorder.PaymentCancelled, now)
	case dompay.StatusRefunded:
		p.SetStatus(dompay.StatusRefunded, remote.StatusDetail, now)
		o.SetPaymentStatus(domorder.PaymentRefunded, now)
	default:
		p.SetStatus(dompay.StatusInProcess, remote.StatusDetail, now)
	}
	if remote.Status.Terminal() {
		p.WebhookProcessed = true
	}

	if err := tx.Payments().Update(ctx, p); err != nil {
		return nil, nil, fmt.Errorf("payment: save: %w", err)
	}
	if err := tx.Orders().Update(ctx, o); err != nil {
		return nil, nil, fmt.Errorf("payment: save order: %w", err)
	}

	res.Outcome = OutcomeApplied
	res.Status = p.Status
	return res, events, nil
}
