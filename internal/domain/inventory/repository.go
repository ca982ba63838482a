package inventory

import "context"

type Repository interface {
	Get(ctx context.Context, productID string) (*Product, error)
	// GetForUpdate re-reads the product and holds it locked until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, productID string) (*Product, error)
	Update(ctx context.Context, p *Product) error
}
