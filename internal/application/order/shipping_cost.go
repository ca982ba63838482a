package order

import (
	"context"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/ledger"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"
	"github.com/shopspring/decimal"

	"go.opentelemetry.io/otel/attribute"
)

const useCaseApplyShipping = "order.apply_shipping"

type ApplyShippingInput struct {
	OrderID string
	Cost    decimal.Decimal
}

type ApplyShippingUseCase struct {
	store ledger.Store
	now   application.Clock
	inst  *application.Instrument
}

func NewApplyShippingUseCase(store ledger.Store, now application.Clock, tel observability.Observability) *ApplyShippingUseCase {
	if now == nil {
		now = application.SystemClock
	}
	return &ApplyShippingUseCase{
		store: store,
		now:   now,
		inst:  application.NewInstrument(tel, orderService, useCaseApplyShipping),
	}
}

func (uc *ApplyShippingUseCase) Execute(ctx context.Context, in ApplyShippingInput) (_ *domain.Order, err error) {
	ctx, call := uc.inst.Start(ctx, "ApplyShippingToOrder",
		attribute.String("order.id", in.OrderID),
		attribute.String("shipping.cost", in.Cost.String()),
	)
	defer func() { call.End(err) }()

	if err = apperr.Validate("invalid shipping cost input",
		apperr.Required("order_id", in.OrderID),
		apperr.NonNegative("cost", in.Cost),
	); err != nil {
		call.Fail("INVALID_INPUT")
		return nil, err
	}

	var updated *domain.Order
	err = uc.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		o, txErr := ApplyShipping(ctx, tx, in.OrderID, in.Cost, uc.now())
		updated = o
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ApplyShipping folds a shipping cost into the order total inside an open transaction.
func ApplyShipping(ctx context.Context, tx ledger.Tx, orderID string, cost decimal.Decimal, now time.Time) (*domain.Order, error) {
	o, err := tx.Orders().GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := o.ApplyShipping(cost, now); err != nil {
		return nil, err
	}
	if err := tx.Orders().Update(ctx, o); err != nil {
		return nil, fmt.Errorf("order: save shipping cost: %w", err)
	}
	return o, nil
}
