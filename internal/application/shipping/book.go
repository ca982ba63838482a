package shipping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	apporder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/ledger"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/shipping"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"

	"go.opentelemetry.io/otel/attribute"
)

const useCaseBook = "shipping.book"

type BookInput struct {
	OrderID              string
	DestinationAddressID string
	Option               domain.Option
	Actor                application.Actor
}

func (in BookInput) Validate() error {
	if in.Option.QuoteID == "" || in.Option.CarrierID == "" {
		return domain.ErrInvalidOption
	}
	return apperr.Validate("invalid booking input",
		apperr.Required("order_id", in.OrderID),
		apperr.Required("destination_address_id", in.DestinationAddressID),
		apperr.NonNegative("option.price", in.Option.Price),
	)
}

type BookUseCase struct {
	store     ledger.Store
	carrier   domain.Carrier
	ids       application.IDGenerator
	publisher outbox.Publisher
	cfg       Config
	now       application.Clock
	inst      *application.Instrument
}

func NewBookUseCase(
	store ledger.Store,
	carrier domain.Carrier,
	ids application.IDGenerator,
	publisher outbox.Publisher,
	cfg Config,
	now application.Clock,
	tel observability.Observability,
) *BookUseCase {
	if now == nil {
		now = application.SystemClock
	}
	return &BookUseCase{
		store:     store,
		carrier:   carrier,
		ids:       ids,
		publisher: publisher,
		cfg:       cfg.withDefaults(),
		now:       now,
		inst:      application.NewInstrument(tel, shippingService, useCaseBook),
	}
}

func (uc *BookUseCase) Execute(ctx context.Context, in BookInput) (_ *domain.Shipment, err error) {
	ctx, call := uc.inst.Start(ctx, "BookShipment",
		attribute.String("order.id", in.OrderID),
		attribute.String("shipping.carrier_id", in.Option.CarrierID),
	)
	defer func() { call.End(err) }()

	if err = in.Validate(); err != nil {
		call.Fail("INVALID_INPUT")
		return nil, err
	}

	if err = uc.ensureNoShipment(ctx, in.OrderID); err != nil {
		call.Fail(failureStatus(err))
		return nil, err
	}
	sc, err := loadContext(ctx, uc.store, uc.cfg, in.Actor, in.OrderID, in.DestinationAddressID)
	if err != nil {
		call.Fail(failureStatus(err))
		return nil, err
	}

	start := time.Now()
	booking, err := uc.carrier.CreateShipment(ctx, domain.BookRequest{
		AccountID:     uc.cfg.AccountID,
		OriginID:      uc.cfg.OriginID,
		Reference:     sc.order.Number,
		QuoteID:       in.Option.QuoteID,
		CarrierID:     in.Option.CarrierID,
		ServiceType:   in.Option.Service,
		LogisticType:  in.Option.LogisticType,
		DeclaredValue: sc.order.Subtotal,
		Parcels:       sc.parcels,
		Destination:   sc.destination,
	})
	uc.inst.External(carrierPeer, "create_shipment", start, err)
	if err != nil {
		call.Fail("CARRIER_FAILED")
		return nil, err
	}

	now := uc.now()
	s := &domain.Shipment{
		ID:                   uc.ids.NewID(),
		OrderID:              in.OrderID,
		DestinationAddressID: in.DestinationAddressID,
		Carrier:              in.Option.Carrier,
		CarrierID:            in.Option.CarrierID,
		Service:              in.Option.Service,
		LogisticType:         in.Option.LogisticType,
		QuoteID:              in.Option.QuoteID,
		ProviderShipmentID:   booking.ID,
		TrackingNumber:       booking.TrackingID,
		Cost:                 in.Option.Price,
		EstimatedDays:        in.Option.EstimatedDays,
		EstimatedDelivery:    booking.EstimatedDelivery,
		Status:               domain.StatusConfirmed,
		StatusDescription:    "shipment confirmed, awaiting pickup",
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	err = uc.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if existing, err := tx.Shipments().GetByOrder(ctx, in.OrderID); err == nil && existing != nil {
			return domain.ErrShipmentExists
		} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if err := tx.Shipments().Insert(ctx, s); err != nil {
			return err
		}
		if _, err := apporder.ApplyShipping(ctx, tx, in.OrderID, s.Cost, now); err != nil {
			return fmt.Errorf("shipping: apply cost: %w", err)
		}
		return nil
	})
	if err != nil {
		// The carrier booking exists without a local row; it needs manual cancellation.
		call.Logger().Error("shipment_booking_orphaned",
			observability.F("provider_shipment_id", booking.ID),
			observability.F("error", err),
		)
		call.Fail(failureStatus(err))
		return nil, err
	}

	call.Field("shipment_id", s.ID)
	call.Field("tracking_number", s.TrackingNumber)
	_ = call.Publish(uc.publisher, domain.NewBookedEvent(s, now))
	return s, nil
}

func (uc *BookUseCase) ensureNoShipment(ctx context.Context, orderID string) error {
	return uc.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		existing, err := tx.Shipments().GetByOrder(ctx, orderID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return nil
		case err != nil:
			return err
		case existing != nil:
			return domain.ErrShipmentExists
		}
		return nil
	})
}
