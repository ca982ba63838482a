package payment

import (
	"context"
	"fmt"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/ledger"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"

	"go.opentelemetry.io/otel/attribute"
)

type PaymentDetail struct {
	Payment      *dompay.Payment
	Transactions []*dompay.Transaction
}

type PaymentPage struct {
	Payments []*dompay.Payment
	Total    int
	Page     int
	Limit    int
}

// Verification summarises where an order stands with its latest payment.
type Verification struct {
	OrderID       string
	OrderStatus   domorder.Status
	PaymentStatus domorder.PaymentStatus
	Paid          bool
	Payment       *dompay.Payment
}

// Manager serves the payment operations outside the webhook path.
type Manager struct {
	store     ledger.Store
	reconcile *ReconcileUseCase
	gateway   dompay.Gateway
	now       application.Clock

	syncInst   *application.Instrument
	cancelInst *application.Instrument
	listInst   *application.Instrument
	detailInst *application.Instrument
	verifyInst *application.Instrument
	searchInst *application.Instrument
}

func NewManager(store ledger.Store, reconcile *ReconcileUseCase, now application.Clock, tel observability.Observability) *Manager {
	if now == nil {
		now = application.SystemClock
	}
	return &Manager{
		store:      store,
		reconcile:  reconcile,
		gateway:    reconcile.gateway,
		now:        now,
		syncInst:   application.NewInstrument(tel, paymentService, "payment.sync"),
		cancelInst: application.NewInstrument(tel, paymentService, "payment.cancel"),
		listInst:   application.NewInstrument(tel, paymentService, "payment.history"),
		detailInst: application.NewInstrument(tel, paymentService, "payment.detail"),
		verifyInst: application.NewInstrument(tel, paymentService, "payment.verify_by_order"),
		searchInst: application.NewInstrument(tel, paymentService, "payment.search_provider"),
	}
}

func (m *Manager) load(ctx context.Context, paymentID string) (*dompay.Payment, error) {
	var p *dompay.Payment
	err := m.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		p, err = tx.Payments().Get(ctx, paymentID)
		return err
	})
	return p, err
}

// Sync refreshes a payment from the provider through the reconciliation path.
func (m *Manager) Sync(ctx context.Context, paymentID string) (_ *dompay.Payment, err error) {
	ctx, call := m.syncInst.Start(ctx, "SyncPayment", attribute.String("payment.id", paymentID))
	defer func() { call.End(err) }()

	p, err := m.load(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	res, err := m.reconcile.Execute(ctx, p.ProviderPaymentID)
	if apperr.Is(err, apperr.NotFound) {
		// Until a webhook corrects it, the stored id is the preference id, which the
		// payment lookup does not know. Fall back to the newest payment for the order.
		found, searchErr := m.gateway.SearchPayments(ctx, p.OrderID)
		if searchErr == nil && len(found) > 0 {
			call.Field("provider_payment_id", found[0].ID)
			res, err = m.reconcile.Execute(ctx, found[0].ID)
		}
	}
	if err != nil {
		call.Fail("RECONCILE_FAILED")
		return nil, err
	}
	call.Status(string(res.Outcome))
	return m.load(ctx, paymentID)
}

func (m *Manager) Cancel(ctx context.Context, actor application.Actor, paymentID string) (_ *dompay.Payment, err error) {
	ctx, call := m.cancelInst.Start(ctx, "CancelPayment", attribute.String("payment.id", paymentID))
	defer func() { call.End(err) }()

	var p *dompay.Payment
	err = m.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var txErr error
		if p, txErr = tx.Payments().GetForUpdate(ctx, paymentID); txErr != nil {
			return txErr
		}
		if !actor.CanAccess(p.UserID) {
			return dompay.ErrForbidden
		}
		if txErr = p.Cancel(m.now()); txErr != nil {
			return txErr
		}
		if txErr = tx.Payments().Update(ctx, p); txErr != nil {
			return fmt.Errorf("payment: save: %w", txErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (m *Manager) History(ctx context.Context, userID string, page, limit int) (_ *PaymentPage, err error) {
	ctx, call := m.listInst.Start(ctx, "PaymentHistory", attribute.String("payment.user_id", userID))
	defer func() { call.End(err) }()

	if err = apperr.Validate("invalid payment listing", apperr.Required("user_id", userID)); err != nil {
		call.Fail("INVALID_INPUT")
		return nil, err
	}
	offset, size := application.Page(page, limit)
	res := &PaymentPage{Page: offset/size + 1, Limit: size}
	err = m.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var listErr error
		res.Payments, res.Total, listErr = tx.Payments().ListByUser(ctx, userID, offset, size)
		return listErr
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (m *Manager) Detail(ctx context.Context, actor application.Actor, paymentID string) (_ *PaymentDetail, err error) {
	ctx, call := m.detailInst.Start(ctx, "PaymentDetail", attribute.String("payment.id", paymentID))
	defer func() { call.End(err) }()

	d := &PaymentDetail{}
	err = m.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var txErr error
		if d.Payment, txErr = tx.Payments().Get(ctx, paymentID); txErr != nil {
			return txErr
		}
		if !actor.CanAccess(d.Payment.UserID) {
			return dompay.ErrForbidden
		}
		d.Transactions, txErr = tx.Payments().Transactions(ctx, paymentID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (m *Manager) VerifyByOrder(ctx context.Context, actor application.Actor, orderID string) (_ *Verification, err error) {
	ctx, call := m.verifyInst.Start(ctx, "VerifyPaymentByOrder", attribute.String("order.id", orderID))
	defer func() { call.End(err) }()

	v := &Verification{OrderID: orderID}
	err = m.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		o, txErr := tx.Orders().Get(ctx, orderID)
		if txErr != nil {
			return txErr
		}
		if !actor.CanAccess(o.UserID) {
			return domorder.ErrForbidden
		}
		v.OrderStatus, v.PaymentStatus = o.Status, o.PaymentStatus
		v.Paid = o.PaymentStatus.Settled()

		p, txErr := tx.Payments().GetLatestByOrder(ctx, orderID)
		switch {
		case txErr == nil:
			v.Payment = p
		case apperr.KindOf(txErr) != apperr.NotFound:
			return txErr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// SearchProvider asks the provider for every payment it holds under an
// external reference. Nothing is written to the ledger.
func (m *Manager) SearchProvider(ctx context.Context, externalReference string) (_ []dompay.RemotePayment, err error) {
	ctx, call := m.searchInst.Start(ctx, "SearchProviderPayments", attribute.String("payment.external_reference", externalReference))
	defer func() { call.End(err) }()

	if err = apperr.Validate("invalid payment search", apperr.Required("external_reference", externalReference)); err != nil {
		call.Fail("INVALID_INPUT")
		return nil, err
	}
	found, err := m.gateway.SearchPayments(ctx, externalReference)
	if err != nil {
		call.Fail("PROVIDER_FAILED")
		return nil, err
	}
	call.Field("results", len(found))
	return found, nil
}
