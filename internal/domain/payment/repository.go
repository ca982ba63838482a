package payment

import (
	"context"
	"time"
)

type Repository interface {
	Insert(ctx context.Context, p *Payment) error
	Get(ctx context.Context, id string) (*Payment, error)
	GetForUpdate(ctx context.Context, id string) (*Payment, error)
	GetByProviderID(ctx context.Context, providerPaymentID string) (*Payment, error)
	// GetLatestByOrder returns the most recently created payment for the order.
	GetLatestByOrder(ctx context.Context, orderID string) (*Payment, error)
	Update(ctx context.Context, p *Payment) error
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]*Payment, int, error)

	AppendTransaction(ctx context.Context, t *Transaction) error
	Transactions(ctx context.Context, paymentID string) ([]*Transaction, error)
}

// Locker serializes reconciliation of one payment across processes.
type Locker interface {
	// Lock blocks until key is held or ctx ends. The returned func releases it.
	Lock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}
