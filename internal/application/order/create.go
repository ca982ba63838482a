package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/customer"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/ledger"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"

	"go.opentelemetry.io/otel/attribute"
)

const useCaseOrderCreate = "order.create_from_cart"

type CreateOrderInput struct {
	UserID            string
	DeliveryType      string
	ShippingAddressID string
	Notes             string
}

func (in CreateOrderInput) Validate() error {
	checks := []apperr.Check{
		apperr.Required("user_id", in.UserID),
		apperr.OneOf("delivery_type", in.DeliveryType, string(domain.DeliveryPickup), string(domain.DeliveryDelivery)),
		apperr.MaxLen("notes", in.Notes, 1000),
	}
	if in.DeliveryType == string(domain.DeliveryDelivery) {
		checks = append(checks, apperr.Required("shipping_address_id", in.ShippingAddressID))
	}
	return apperr.Validate("invalid order input", checks...)
}

// CreateOrderUseCase turns the user's cart into a priced order in one transaction.
type CreateOrderUseCase struct {
	store     ledger.Store
	guard     StockGuard
	ids       application.IDGenerator
	publisher domoutbox.Publisher
	cfg       Config
	now       application.Clock
	inst      *application.Instrument
}

func NewCreateOrderUseCase(
	store ledger.Store,
	guard StockGuard,
	ids application.IDGenerator,
	publisher domoutbox.Publisher,
	cfg Config,
	now application.Clock,
	tel observability.Observability,
) *CreateOrderUseCase {
	if now == nil {
		now = application.SystemClock
	}
	if cfg.NumberPrefix == "" {
		cfg.NumberPrefix = "ORD"
	}
	return &CreateOrderUseCase{
		store:     store,
		guard:     guard,
		ids:       ids,
		publisher: publisher,
		cfg:       cfg,
		now:       now,
		inst:      application.NewInstrument(tel, orderService, useCaseOrderCreate),
	}
}

func (uc *CreateOrderUseCase) Execute(ctx context.Context, in CreateOrderInput) (_ *domain.Order, err error) {
	ctx, call := uc.inst.Start(ctx, "CreateOrderFromCart",
		attribute.String("order.user_id", in.UserID),
		attribute.String("order.delivery_type", in.DeliveryType),
	)
	defer func() { call.End(err) }()

	if err = in.Validate(); err != nil {
		call.Fail("INVALID_INPUT")
		return nil, err
	}

	var created *domain.Order
	err = uc.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		o, txErr := uc.createInTx(ctx, tx, in)
		created = o
		return txErr
	})
	if err != nil {
		call.Fail(failureStatus(err))
		return nil, err
	}

	call.Field("order_id", created.ID)
	call.Field("order_number", created.Number)
	call.Span().SetAttributes(
		attribute.String("order.id", created.ID),
		attribute.String("order.total", created.Total.String()),
	)

	now := uc.now()
	_ = call.Publish(uc.publisher, domain.NewCreatedEvent(created, now))
	if created.DeliveryType == domain.DeliveryDelivery {
		_ = call.Publish(uc.publisher, domain.NewDeliveryCoordinationEvent(created, now))
	}

	return created, nil
}

func (uc *CreateOrderUseCase) createInTx(ctx context.Context, tx ledger.Tx, in CreateOrderInput) (*domain.Order, error) {
	c, err := tx.Carts().GetByUser(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("order: load cart: %w", err)
	}
	if c.Empty() {
		return nil, domain.ErrEmptyCart
	}

	orderID := uc.ids.NewID()
	items := make([]domain.Item, 0, len(c.Items))
	for _, ci := range c.Items {
		p, err := tx.Products().Get(ctx, ci.ProductID)
		if err != nil {
			return nil, fmt.Errorf("order: load product %s: %w", ci.ProductID, err)
		}
		if err := p.CanFulfil(ci.Quantity); err != nil {
			return nil, err
		}
		items = append(items, domain.Item{
			ID:           uc.ids.NewID(),
			ProductID:    p.ID,
			Quantity:     ci.Quantity,
			UnitPrice:    p.SellingPrice(),
			ProductName:  p.Name,
			ProductBrand: p.Brand,
			ProductImage: p.Image,
		})
	}

	deliveryType := domain.DeliveryType(in.DeliveryType)
	var snapshot *domain.ShippingSnapshot
	addressID := ""
	if deliveryType == domain.DeliveryDelivery {
		snapshot, err = shippingSnapshot(ctx, tx, in.UserID, in.ShippingAddressID)
		if err != nil {
			return nil, err
		}
		addressID = in.ShippingAddressID
	}

	now := uc.now()
	o, err := domain.New(domain.Draft{
		ID:                orderID,
		Number:            domain.NextNumber(ctx, tx.Orders(), uc.cfg.NumberPrefix, now),
		UserID:            in.UserID,
		DeliveryType:      deliveryType,
		ShippingAddressID: addressID,
		Shipping:          snapshot,
		Items:             items,
		TaxRate:           uc.cfg.TaxRate,
		Notes:             in.Notes,
	}, now)
	if err != nil {
		return nil, err
	}

	if err := insertNumbered(ctx, tx.Orders(), o, uc.cfg.NumberPrefix, now); err != nil {
		return nil, fmt.Errorf("order: insert: %w", err)
	}
	for _, it := range o.Items {
		if err := uc.guard.Decrement(ctx, tx, it.ProductID, it.Quantity); err != nil {
			return nil, err
		}
	}
	if err := tx.Carts().Clear(ctx, c.ID); err != nil {
		return nil, fmt.Errorf("order: clear cart: %w", err)
	}
	return o, nil
}

// insertNumbered retries with alternative numbers when a concurrent checkout
// inserted the same number between allocation and insert.
func insertNumbered(ctx context.Context, repo domain.Repository, o *domain.Order, prefix string, now time.Time) error {
	err := repo.Insert(ctx, o)
	if !errors.Is(err, domain.ErrNumberTaken) {
		return err
	}
	for _, number := range domain.Alternatives(o.Number, prefix, o.ID, now) {
		o.Number = number
		if err = repo.Insert(ctx, o); !errors.Is(err, domain.ErrNumberTaken) {
			return err
		}
	}
	return err
}

func shippingSnapshot(ctx context.Context, tx ledger.Tx, userID, addressID string) (*domain.ShippingSnapshot, error) {
	addr, err := tx.Customers().GetAddress(ctx, addressID)
	if err != nil {
		if errors.Is(err, customer.ErrAddressNotFound) {
			return nil, domain.ErrInvalidAddress
		}
		return nil, fmt.Errorf("order: load address: %w", err)
	}
	if addr.UserID != userID {
		return nil, domain.ErrInvalidAddress
	}

	recipient, phone := addr.Recipient, addr.Phone
	if recipient == "" || phone == "" {
		if u, err := tx.Customers().GetUser(ctx, userID); err == nil {
			if recipient == "" {
				recipient = u.Name
			}
			if phone == "" {
				phone = u.Phone
			}
		}
	}

	return &domain.ShippingSnapshot{
		Recipient:    recipient,
		Phone:        phone,
		Address:      addr.Line(),
		Province:     addr.Province,
		City:         addr.City,
		PostalCode:   addr.PostalCode,
		Instructions: addr.Instructions,
	}, nil
}

func failureStatus(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		return "EMPTY_CART"
	case errors.Is(err, domain.ErrInvalidAddress):
		return "INVALID_ADDRESS"
	case errors.Is(err, inventory.ErrInsufficientStock):
		return "INSUFFICIENT_STOCK"
	case apperr.KindOf(err) == apperr.Conflict:
		return "CONFLICT"
	case apperr.KindOf(err) == apperr.NotFound:
		return "NOT_FOUND"
	default:
		return "TX_FAILED"
	}
}
