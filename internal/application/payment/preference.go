package payment

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/customer"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/ledger"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"

	"go.opentelemetry.io/otel/attribute"
)

const useCaseCreatePreference = "payment.create_preference"

type CreatePreferenceInput struct {
	OrderID string
	Actor   application.Actor
}

type PreferenceResult struct {
	PaymentID    string
	PreferenceID string
	RedirectURL  string
	ExpiresAt    time.Time
}

// CreatePreferenceUseCase opens a provider checkout for an order and records a pending payment.
type CreatePreferenceUseCase struct {
	store   ledger.Store
	gateway dompay.Gateway
	ids     application.IDGenerator
	cfg     Config
	now     application.Clock
	inst    *application.Instrument
}

func NewCreatePreferenceUseCase(
	store ledger.Store,
	gateway dompay.Gateway,
	ids application.IDGenerator,
	cfg Config,
	now application.Clock,
	tel observability.Observability,
) *CreatePreferenceUseCase {
	if now == nil {
		now = application.SystemClock
	}
	return &CreatePreferenceUseCase{
		store:   store,
		gateway: gateway,
		ids:     ids,
		cfg:     cfg.withDefaults(),
		now:     now,
		inst:    application.NewInstrument(tel, paymentService, useCaseCreatePreference),
	}
}

func (uc *CreatePreferenceUseCase) Execute(ctx context.Context, in CreatePreferenceInput) (_ *PreferenceResult, err error) {
	ctx, call := uc.inst.Start(ctx, "CreatePaymentPreference", attribute.String("order.id", in.OrderID))
	defer func() { call.End(err) }()

	if err = apperr.Validate("invalid preference input", apperr.Required("order_id", in.OrderID)); err != nil {
		call.Fail("INVALID_INPUT")
		return nil, err
	}

	var (
		o    *domorder.Order
		user *customer.User
	)
	err = uc.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var txErr error
		if o, txErr = tx.Orders().Get(ctx, in.OrderID); txErr != nil {
			return txErr
		}
		if !in.Actor.CanAccess(o.UserID) {
			return domorder.ErrForbidden
		}
		user, txErr = tx.Customers().GetUser(ctx, o.UserID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	if !o.Total.IsPositive() {
		call.Fail("INVALID_ORDER_TOTAL")
		return nil, dompay.ErrInvalidOrder
	}

	now := uc.now()
	pref := uc.buildPreference(o, user, now)
	idemKey := fmt.Sprintf("provider-%s-%d", o.ID, now.UnixMilli())

	start := time.Now()
	res, err := uc.gateway.CreatePreference(ctx, pref, idemKey)
	uc.inst.External(providerPeer, "create_preference", start, err)
	if err != nil {
		call.Fail("PROVIDER_ERROR")
		return nil, err
	}

	p := &dompay.Payment{
		ID:                uc.ids.NewID(),
		OrderID:           o.ID,
		UserID:            o.UserID,
		ProviderPaymentID: res.ID,
		IdempotencyKey:    idemKey,
		Amount:            o.Total,
		Currency:          uc.cfg.Currency,
		Status:            dompay.StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err = uc.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if err := tx.Payments().Insert(ctx, p); err != nil {
			return fmt.Errorf("payment: insert: %w", err)
		}
		locked, err := tx.Orders().GetForUpdate(ctx, o.ID)
		if err != nil {
			return err
		}
		locked.LinkPayment(res.ID, now)
		return tx.Orders().Update(ctx, locked)
	})
	if err != nil {
		call.Fail("PERSIST_FAILED")
		call.Logger().Error("payment_preference_orphaned",
			observability.F("preference_id", res.ID),
			observability.F("order_id", o.ID),
			observability.F("error", err),
		)
		return nil, err
	}

	call.Field("payment_id", p.ID)
	call.Field("preference_id", res.ID)
	return &PreferenceResult{
		PaymentID:    p.ID,
		PreferenceID: res.ID,
		RedirectURL:  res.InitPoint,
		ExpiresAt:    pref.ExpiresAt,
	}, nil
}

func (uc *CreatePreferenceUseCase) buildPreference(o *domorder.Order, user *customer.User, now time.Time) dompay.Preference {
	items := make([]dompay.PreferenceItem, len(o.Items))
	for i, it := range o.Items {
		title := it.ProductName
		if it.ProductBrand != "" {
			title = it.ProductBrand + " " + it.ProductName
		}
		items[i] = dompay.PreferenceItem{
			ID:         it.ProductID,
			Title:      title,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			Currency:   uc.cfg.Currency,
			PictureURL: it.ProductImage,
		}
	}
	if extra := o.Total.Sub(o.Subtotal); extra.IsPositive() {
		items = append(items, dompay.PreferenceItem{
			ID:        "charges",
			Title:     "Shipping and taxes",
			Quantity:  1,
			UnitPrice: extra,
			Currency:  uc.cfg.Currency,
		})
	}

	payer := dompay.Payer{Name: user.Name, Email: user.Email, Phone: user.Phone}
	if o.Shipping != nil && o.Shipping.Phone != "" {
		payer.Phone = o.Shipping.Phone
	}

	back := func(kind string) string {
		return fmt.Sprintf("%s/payment/%s?order_id=%s", strings.TrimRight(uc.cfg.FrontendURL, "/"), kind, url.QueryEscape(o.ID))
	}

	return dompay.Preference{
		ExternalReference: o.ID,
		Items:             items,
		Payer:             payer,
		BackURLs: dompay.BackURLs{
			Success: back("success"),
			Failure: back("failure"),
			Pending: back("pending"),
		},
		NotificationURL: strings.TrimRight(uc.cfg.APIURL, "/") + "/api/v1/webhooks/payments",
		ExpiresAt:       now.Add(uc.cfg.PreferenceTTL),
		Metadata: map[string]string{
			"order_id":     o.ID,
			"order_number": o.Number,
			"user_id":      o.UserID,
		},
	}
}
