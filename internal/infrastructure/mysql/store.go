package mysql

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/customer"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/ledger"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/shipping"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/webhook"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store runs ledger transactions on a gorm connection.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ ledger.Store = (*Store)(nil)

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(ctx, &tx{db: db})
	})
}

type tx struct{ db *gorm.DB }

func (t *tx) Orders() order.Repository       { return orderRepo{t.db} }
func (t *tx) Products() inventory.Repository { return productRepo{t.db} }
func (t *tx) Carts() cart.Repository         { return cartRepo{t.db} }
func (t *tx) Customers() customer.Repository { return customerRepo{t.db} }
func (t *tx) Payments() payment.Repository   { return paymentRepo{t.db} }
func (t *tx) Shipments() shipping.Repository { return shipmentRepo{t.db} }
func (t *tx) Deliveries() webhook.Repository { return deliveryRepo{t.db} }

// forUpdate adds SELECT ... FOR UPDATE.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// mapErr turns gorm sentinels into domain errors.
func mapErr(err, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Wrap(apperr.Conflict, err, "unique constraint violated")
	}
	return err
}
