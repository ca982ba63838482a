package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/ledger"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"

	"go.opentelemetry.io/otel/attribute"
)

const useCaseUpdateStatus = "order.update_status"

type UpdateStatusInput struct {
	OrderID       string
	Status        string
	PaymentStatus *string
	Notes         *string
}

func (in UpdateStatusInput) Validate() error {
	checks := []apperr.Check{
		apperr.Required("order_id", in.OrderID),
		apperr.Required("status", in.Status),
	}
	if in.Notes != nil {
		checks = append(checks, apperr.MaxLen("notes", *in.Notes, 1000))
	}
	return apperr.Validate("invalid status update", checks...)
}

type UpdateStatusUseCase struct {
	store ledger.Store
	now   application.Clock
	inst  *application.Instrument
}

func NewUpdateStatusUseCase(store ledger.Store, now application.Clock, tel observability.Observability) *UpdateStatusUseCase {
	if now == nil {
		now = application.SystemClock
	}
	return &UpdateStatusUseCase{
		store: store,
		now:   now,
		inst:  application.NewInstrument(tel, orderService, useCaseUpdateStatus),
	}
}

func (uc *UpdateStatusUseCase) Execute(ctx context.Context, in UpdateStatusInput) (_ *domain.Order, err error) {
	ctx, call := uc.inst.Start(ctx, "UpdateStatus",
		attribute.String("order.id", in.OrderID),
		attribute.String("order.status", in.Status),
	)
	defer func() { call.End(err) }()

	if err = in.Validate(); err != nil {
		call.Fail("INVALID_INPUT")
		return nil, err
	}

	change := domain.StatusChange{Status: domain.Status(in.Status), Notes: in.Notes}
	if in.PaymentStatus != nil {
		ps := domain.PaymentStatus(*in.PaymentStatus)
		change.PaymentStatus = &ps
	}

	var updated *domain.Order
	err = uc.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		o, err := tx.Orders().GetForUpdate(ctx, in.OrderID)
		if err != nil {
			return err
		}
		from := o.Status
		if err := o.Transition(change, uc.now()); err != nil {
			return err
		}
		if err := tx.Orders().Update(ctx, o); err != nil {
			return fmt.Errorf("order: save status: %w", err)
		}
		call.Field("from_status", string(from))
		updated = o
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrCannotCancelPaid) {
			call.Fail("CANCEL_PAID_REJECTED")
		}
		return nil, err
	}
	call.Field("to_status", string(updated.Status))
	return updated, nil
}
