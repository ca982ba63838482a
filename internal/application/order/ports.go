package order

import (
	"context"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

const orderService = "order-service"

// Config holds pricing and numbering settings.
type Config struct {
	TaxRate      decimal.Decimal
	NumberPrefix string
}

// StockGuard decrements stock inside an open ledger transaction.
type StockGuard interface {
	Decrement(ctx context.Context, tx ledger.Tx, productID string, quantity int) error
}
