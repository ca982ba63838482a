package shipping

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/ledger"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/shipping"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const useCaseTrack = "shipping.track"

type TrackUseCase struct {
	store   ledger.Store
	carrier domain.Carrier
	now     application.Clock
	inst    *application.Instrument
}

func NewTrackUseCase(store ledger.Store, carrier domain.Carrier, now application.Clock, tel observability.Observability) *TrackUseCase {
	if now == nil {
		now = application.SystemClock
	}
	return &TrackUseCase{
		store:   store,
		carrier: carrier,
		now:     now,
		inst:    application.NewInstrument(tel, shippingService, useCaseTrack),
	}
}

// Execute returns the order's shipment, refreshed from the carrier unless it is already final.
func (uc *TrackUseCase) Execute(ctx context.Context, actor application.Actor, orderID string) (_ *domain.Shipment, err error) {
	ctx, call := uc.inst.Start(ctx, "TrackShipment", attribute.String("order.id", orderID))
	defer func() { call.End(err) }()

	var s *domain.Shipment
	err = uc.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		o, err := tx.Orders().Get(ctx, orderID)
		if err != nil {
			return err
		}
		if !actor.CanAccess(o.UserID) {
			return domorder.ErrForbidden
		}
		s, err = tx.Shipments().GetByOrder(ctx, orderID)
		return err
	})
	if err != nil {
		call.Fail(failureStatus(err))
		return nil, err
	}
	if s.Status.Final() || s.ProviderShipmentID == "" {
		call.Status("CACHED")
		return s, nil
	}

	start := time.Now()
	tr, err := uc.carrier.Track(ctx, s.ProviderShipmentID)
	uc.inst.External(carrierPeer, "track", start, err)
	if err != nil {
		// Stale status beats no status.
		call.Logger().Warn("shipment_track_failed", observability.F("error", err))
		call.Status("STALE")
		return s, nil
	}

	now := uc.now()
	if !s.Advance(tr.Status, tr.Description, now) {
		return s, nil
	}
	err = uc.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.Shipments().Update(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	call.Field("shipment_status", string(s.Status))
	return s, nil
}
