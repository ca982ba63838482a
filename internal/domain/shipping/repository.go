package shipping

import "context"

type Repository interface {
	Insert(ctx context.Context, s *Shipment) error
	GetByOrder(ctx context.Context, orderID string) (*Shipment, error)
	Update(ctx context.Context, s *Shipment) error
}
