package inventory

import (
	"context"
	"fmt"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	dominv "github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/ledger"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"

	"go.opentelemetry.io/otel/attribute"
)

const (
	inventoryService  = "inventory-service"
	useCaseCheckStock = "inventory.check_availability"
)

type Availability struct {
	Available bool   `json:"available"`
	Stock     int    `json:"stock"`
	Unlimited bool   `json:"unlimited"`
	Message   string `json:"message"`
}

// Guard validates and decrements product stock.
type Guard struct {
	store ledger.Store
	now   application.Clock
	inst  *application.Instrument
	log   observability.Logger
}

func NewGuard(store ledger.Store, now application.Clock, tel observability.Observability) *Guard {
	if now == nil {
		now = application.SystemClock
	}
	if tel == nil {
		tel = observability.Nop()
	}
	return &Guard{
		store: store,
		now:   now,
		inst:  application.NewInstrument(tel, inventoryService, useCaseCheckStock),
		log:   tel.Logger().With(observability.F("service", inventoryService)),
	}
}

// CheckAvailability reports whether quantity units of a product can be sold now.
func (g *Guard) CheckAvailability(ctx context.Context, productID string, quantity int) (_ Availability, err error) {
	ctx, call := g.inst.Start(ctx, "CheckAvailability",
		attribute.String("product.id", productID),
		attribute.Int("quantity", quantity),
	)
	defer func() { call.End(err) }()

	if err = apperr.Validate("invalid availability query",
		apperr.Required("product_id", productID),
		apperr.Positive("quantity", quantity),
	); err != nil {
		call.Fail("INVALID_INPUT")
		return Availability{}, err
	}

	var p *dominv.Product
	err = g.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var getErr error
		p, getErr = tx.Products().Get(ctx, productID)
		return getErr
	})
	if err != nil {
		call.Fail("PRODUCT_LOOKUP_FAILED")
		return Availability{}, err
	}

	return availabilityOf(p, quantity), nil
}

func availabilityOf(p *dominv.Product, quantity int) Availability {
	if !p.TrackInventory {
		return Availability{Available: p.IsActive, Stock: p.Stock, Unlimited: true, Message: "unlimited stock"}
	}
	if p.IsAvailable && p.IsActive && p.Stock >= quantity {
		return Availability{Available: true, Stock: p.Stock, Message: "in stock"}
	}
	if !p.IsAvailable || !p.IsActive || p.Stock == 0 {
		return Availability{Stock: p.Stock, Message: "out of stock"}
	}
	return Availability{Stock: p.Stock, Message: fmt.Sprintf("only %d units available", p.Stock)}
}

// Decrement re-reads the product under lock and removes quantity units.
// It must run inside the caller's ledger transaction.
func (g *Guard) Decrement(ctx context.Context, tx ledger.Tx, productID string, quantity int) error {
	p, err := tx.Products().GetForUpdate(ctx, productID)
	if err != nil {
		return fmt.Errorf("inventory: lock product %s: %w", productID, err)
	}
	if !p.TrackInventory {
		return nil
	}
	before := p.Stock
	if err := p.Deduct(quantity, g.now()); err != nil {
		logctx.FromOr(ctx, g.log).Warn("stock_decrement_rejected",
			observability.F("product_id", productID),
			observability.F("requested", quantity),
			observability.F("stock", before),
		)
		return err
	}
	if err := tx.Products().Update(ctx, p); err != nil {
		return fmt.Errorf("inventory: save product %s: %w", productID, err)
	}
	logctx.FromOr(ctx, g.log).Debug("stock_decremented",
		observability.F("product_id", productID),
		observability.F("quantity", quantity),
		observability.F("stock_before", before),
		observability.F("stock_after", p.Stock),
	)
	return nil
}
