package shipping

import (
	"context"
	"errors"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/ledger"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/shipping"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"

	"go.opentelemetry.io/otel/attribute"
)

const useCaseQuote = "shipping.quote"

var ErrNoOptions = apperr.New(apperr.Upstream, "carrier returned no shipping options")

type QuoteInput struct {
	OrderID              string
	DestinationAddressID string
	Actor                application.Actor
}

func (in QuoteInput) Validate() error {
	return apperr.Validate("invalid quote input",
		apperr.Required("order_id", in.OrderID),
		apperr.Required("destination_address_id", in.DestinationAddressID),
	)
}

type QuoteUseCase struct {
	store   ledger.Store
	carrier domain.Carrier
	cfg     Config
	inst    *application.Instrument
}

func NewQuoteUseCase(store ledger.Store, carrier domain.Carrier, cfg Config, tel observability.Observability) *QuoteUseCase {
	return &QuoteUseCase{
		store:   store,
		carrier: carrier,
		cfg:     cfg.withDefaults(),
		inst:    application.NewInstrument(tel, shippingService, useCaseQuote),
	}
}

func (uc *QuoteUseCase) Execute(ctx context.Context, in QuoteInput) (_ []domain.Option, err error) {
	ctx, call := uc.inst.Start(ctx, "QuoteShipping",
		attribute.String("order.id", in.OrderID),
		attribute.String("address.id", in.DestinationAddressID),
	)
	defer func() { call.End(err) }()

	if err = in.Validate(); err != nil {
		call.Fail("INVALID_INPUT")
		return nil, err
	}

	sc, err := loadContext(ctx, uc.store, uc.cfg, in.Actor, in.OrderID, in.DestinationAddressID)
	if err != nil {
		call.Fail(failureStatus(err))
		return nil, err
	}

	start := time.Now()
	opts, err := uc.carrier.Quote(ctx, domain.QuoteRequest{
		AccountID: uc.cfg.AccountID,
		OriginID:  uc.cfg.OriginID,
		// Tax and shipping must not inflate the insured value.
		DeclaredValue: sc.order.Subtotal,
		Parcels:       sc.parcels,
		Destination:   sc.destination,
	})
	uc.inst.External(carrierPeer, "quote", start, err)
	if err != nil {
		call.Fail("CARRIER_FAILED")
		return nil, err
	}
	if len(opts) == 0 {
		call.Fail("NO_OPTIONS")
		return nil, ErrNoOptions
	}

	call.Field("options", len(opts))
	return opts, nil
}

func failureStatus(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoDestination):
		return "NO_DESTINATION"
	case errors.Is(err, domain.ErrShipmentExists):
		return "SHIPMENT_EXISTS"
	case errors.Is(err, domorder.ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, domorder.ErrNotFound):
		return "ORDER_NOT_FOUND"
	}
	return "TX_FAILED"
}
