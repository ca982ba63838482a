// Package ledger defines the transactional store the checkout workflows run against.
package ledger

import (
	"context"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/customer"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/shipping"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/webhook"
)

// Tx exposes repositories bound to one transaction.
type Tx interface {
	Orders() order.Repository
	Products() inventory.Repository
	Carts() cart.Repository
	Customers() customer.Repository
	Payments() payment.Repository
	Shipments() shipping.Repository
	Deliveries() webhook.Repository
}

// Store runs fn atomically. If fn returns an error nothing it wrote is kept.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
