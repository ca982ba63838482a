package memory

import (
	"context"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/shipping"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/webhook"
)

type shipmentRepo struct{ st *state }

func (r shipmentRepo) Insert(_ context.Context, s *shipping.Shipment) error {
	if _, exists := r.st.shipments[s.OrderID]; exists {
		return shipping.ErrShipmentExists
	}
	r.st.shipments[s.OrderID] = s.Clone()
	return nil
}

func (r shipmentRepo) GetByOrder(_ context.Context, orderID string) (*shipping.Shipment, error) {
	s, ok := r.st.shipments[orderID]
	if !ok {
		return nil, shipping.ErrNotFound
	}
	return s.Clone(), nil
}

func (r shipmentRepo) Update(_ context.Context, s *shipping.Shipment) error {
	if _, ok := r.st.shipments[s.OrderID]; !ok {
		return shipping.ErrNotFound
	}
	r.st.shipments[s.OrderID] = s.Clone()
	return nil
}

type deliveryRepo struct{ st *state }

func deliveryKey(provider, id string) string { return provider + "/" + id }

func (r deliveryRepo) Get(_ context.Context, provider, id string) (*webhook.Delivery, error) {
	d, ok := r.st.deliveries[deliveryKey(provider, id)]
	if !ok {
		return nil, nil
	}
	return d.Clone(), nil
}

func (r deliveryRepo) Save(_ context.Context, d *webhook.Delivery) error {
	r.st.deliveries[deliveryKey(d.Provider, d.ID)] = d.Clone()
	return nil
}
