package memory

import (
	"context"
	"sync"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/customer"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/ledger"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/shipping"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/webhook"
)

// Store is an in-memory ledger. Transactions run one at a time against a copy of
// the state which replaces the live state only when fn succeeds.
type Store struct {
	mu sync.Mutex
	st *state
}

var _ ledger.Store = (*Store)(nil)

type state struct {
	orders       map[string]*order.Order
	products     map[string]*inventory.Product
	carts        map[string]*cart.Cart
	users        map[string]*customer.User
	addresses    map[string]*customer.Address
	payments     map[string]*payment.Payment
	transactions map[string][]*payment.Transaction
	shipments    map[string]*shipping.Shipment
	deliveries   map[string]*webhook.Delivery
}

func NewStore() *Store {
	return &Store{st: &state{
		orders:       make(map[string]*order.Order),
		products:     make(map[string]*inventory.Product),
		carts:        make(map[string]*cart.Cart),
		users:        make(map[string]*customer.User),
		addresses:    make(map[string]*customer.Address),
		payments:     make(map[string]*payment.Payment),
		transactions: make(map[string][]*payment.Transaction),
		shipments:    make(map[string]*shipping.Shipment),
		deliveries:   make(map[string]*webhook.Delivery),
	}}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.st.clone()
	if err := fn(ctx, &tx{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// Seed helpers populate collaborator data owned by other services.

func (s *Store) PutProduct(p *inventory.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.products[p.ID] = p.Clone()
}

func (s *Store) PutUser(u *customer.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *u
	s.st.users[u.ID] = &c
}

func (s *Store) PutAddress(a *customer.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *a
	s.st.addresses[a.ID] = &c
}

func (s *Store) PutCart(c *cart.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.carts[c.UserID] = c.Clone()
}

func (st *state) clone() *state {
	c := &state{
		orders:       make(map[string]*order.Order, len(st.orders)),
		products:     make(map[string]*inventory.Product, len(st.products)),
		carts:        make(map[string]*cart.Cart, len(st.carts)),
		users:        make(map[string]*customer.User, len(st.users)),
		addresses:    make(map[string]*customer.Address, len(st.addresses)),
		payments:     make(map[string]*payment.Payment, len(st.payments)),
		transactions: make(map[string][]*payment.Transaction, len(st.transactions)),
		shipments:    make(map[string]*shipping.Shipment, len(st.shipments)),
		deliveries:   make(map[string]*webhook.Delivery, len(st.deliveries)),
	}
	for k, v := range st.orders {
		c.orders[k] = v.Clone()
	}
	for k, v := range st.products {
		c.products[k] = v.Clone()
	}
	for k, v := range st.carts {
		c.carts[k] = v.Clone()
	}
	// users and addresses are never written through a transaction
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.addresses {
		c.addresses[k] = v
	}
	for k, v := range st.payments {
		c.payments[k] = v.Clone()
	}
	for k, v := range st.transactions {
		c.transactions[k] = append([]*payment.Transaction(nil), v...)
	}
	for k, v := range st.shipments {
		c.shipments[k] = v.Clone()
	}
	for k, v := range st.deliveries {
		c.deliveries[k] = v.Clone()
	}
	return c
}

type tx struct{ st *state }

func (t *tx) Orders() order.Repository       { return orderRepo{t.st} }
func (t *tx) Products() inventory.Repository { return productRepo{t.st} }
func (t *tx) Carts() cart.Repository         { return cartRepo{t.st} }
func (t *tx) Customers() customer.Repository { return customerRepo{t.st} }
func (t *tx) Payments() payment.Repository   { return paymentRepo{t.st} }
func (t *tx) Shipments() shipping.Repository { return shipmentRepo{t.st} }
func (t *tx) Deliveries() webhook.Repository { return deliveryRepo{t.st} }

func page[T any](all []T, offset, limit int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}
