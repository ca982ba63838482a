package memory

import (
	"context"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/customer"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
)

type productRepo struct{ st *state }

func (r productRepo) Get(_ context.Context, id string) (*inventory.Product, error) {
	p, ok := r.st.products[id]
	if !ok {
		return nil, inventory.ErrNotFound
	}
	return p.Clone(), nil
}

func (r productRepo) GetForUpdate(ctx context.Context, id string) (*inventory.Product, error) {
	return r.Get(ctx, id)
}

func (r productRepo) Update(_ context.Context, p *inventory.Product) error {
	if _, ok := r.st.products[p.ID]; !ok {
		return inventory.ErrNotFound
	}
	r.st.products[p.ID] = p.Clone()
	return nil
}

type cartRepo struct{ st *state }

func (r cartRepo) GetByUser(_ context.Context, userID string) (*cart.Cart, error) {
	c, ok := r.st.carts[userID]
	if !ok {
		return &cart.Cart{UserID: userID}, nil
	}
	return c.Clone(), nil
}

func (r cartRepo) Clear(_ context.Context, cartID string) error {
	for _, c := range r.st.carts {
		if c.ID == cartID {
			c.Items = nil
			return nil
		}
	}
	return nil
}

type customerRepo struct{ st *state }

func (r customerRepo) GetUser(_ context.Context, id string) (*customer.User, error) {
	u, ok := r.st.users[id]
	if !ok {
		return nil, customer.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r customerRepo) GetAddress(_ context.Context, id string) (*customer.Address, error) {
	a, ok := r.st.addresses[id]
	if !ok {
		return nil, customer.ErrAddressNotFound
	}
	c := *a
	return &c, nil
}
