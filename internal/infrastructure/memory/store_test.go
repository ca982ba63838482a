package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/ledger"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/shipping"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithinTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.PutProduct(&inventory.Product{ID: "p-1", Stock: 5, TrackInventory: true})
	s.PutCart(&cart.Cart{ID: "c-1", UserID: "u-1", Items: []cart.Item{{ID: "ci-1", ProductID: "p-1", Quantity: 1}}})

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		p, err := tx.Products().GetForUpdate(ctx, "p-1")
		require.NoError(t, err)
		require.NoError(t, p.Deduct(3, time.Now()))
		require.NoError(t, tx.Products().Update(ctx, p))
		require.NoError(t, tx.Carts().Clear(ctx, "c-1"))
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		p, err := tx.Products().Get(ctx, "p-1")
		require.NoError(t, err)
		assert.Equal(t, 5, p.Stock)

		c, err := tx.Carts().GetByUser(ctx, "u-1")
		require.NoError(t, err)
		assert.Len(t, c.Items, 1)
		return nil
	}))
}

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.PutProduct(&inventory.Product{ID: "p-1", Stock: 5, TrackInventory: true})

	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		p, err := tx.Products().GetForUpdate(ctx, "p-1")
		if err != nil {
			return err
		}
		if err := p.Deduct(2, time.Now()); err != nil {
			return err
		}
		return tx.Products().Update(ctx, p)
	}))

	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		p, err := tx.Products().Get(ctx, "p-1")
		require.NoError(t, err)
		assert.Equal(t, 3, p.Stock)
		return nil
	}))
}

func TestWithinTx_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewStore().WithinTx(ctx, func(context.Context, ledger.Tx) error {
		t.Fatal("fn must not run")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUniqueConstraints(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	err := s.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		require.NoError(t, tx.Orders().Insert(ctx, &order.Order{ID: "o-1", Number: "ORD-1"}))
		assert.ErrorIs(t, tx.Orders().Insert(ctx, &order.Order{ID: "o-2", Number: "ORD-1"}), order.ErrNumberTaken)

		require.NoError(t, tx.Payments().Insert(ctx, &payment.Payment{ID: "pay-1", ProviderPaymentID: "pref-1", IdempotencyKey: "k1"}))
		err := tx.Payments().Insert(ctx, &payment.Payment{ID: "pay-2", ProviderPaymentID: "pref-1", IdempotencyKey: "k2"})
		assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
		err = tx.Payments().Insert(ctx, &payment.Payment{ID: "pay-3", ProviderPaymentID: "pref-3", IdempotencyKey: "k1"})
		assert.Equal(t, apperr.Conflict, apperr.KindOf(err))

		require.NoError(t, tx.Shipments().Insert(ctx, &shipping.Shipment{ID: "s-1", OrderID: "o-1"}))
		assert.ErrorIs(t, tx.Shipments().Insert(ctx, &shipping.Shipment{ID: "s-2", OrderID: "o-1"}), shipping.ErrShipmentExists)
		return nil
	})
	require.NoError(t, err)
}

func TestOrderQueries(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		for i, n := range []string{"ORD-250314-0001", "ORD-250314-0002", "ORD-250313-0001"} {
			o := &order.Order{ID: n, Number: n, UserID: "u-1", CreatedAt: base.Add(time.Duration(i) * time.Hour)}
			if err := tx.Orders().Insert(ctx, o); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		n, err := tx.Orders().CountByNumberPrefix(ctx, "ORD-250314-")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		list, total, err := tx.Orders().ListByUser(ctx, "u-1", 0, 2)
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, list, 2)
		assert.Equal(t, "ORD-250313-0001", list[0].Number)

		list, _, err = tx.Orders().ListByUser(ctx, "u-1", 5, 2)
		require.NoError(t, err)
		assert.Empty(t, list)

		_, err = tx.Orders().GetByNumber(ctx, "nope")
		assert.ErrorIs(t, err, order.ErrNotFound)
		return nil
	}))
}

func TestOrderAggregates(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	seed := []*order.Order{
		{ID: "o1", Number: "N1", UserID: "u-1", Status: order.StatusPaid, PaymentStatus: order.PaymentPaid, Total: decimal.NewFromInt(10), CreatedAt: base},
		{ID: "o2", Number: "N2", UserID: "u-2", Status: order.StatusPaid, PaymentStatus: order.PaymentApproved, Total: decimal.NewFromInt(15), CreatedAt: base.Add(time.Hour)},
		{ID: "o3", Number: "N3", UserID: "u-2", Status: order.StatusPending, PaymentStatus: order.PaymentPending, Total: decimal.NewFromInt(99), CreatedAt: base.Add(24 * time.Hour)},
	}
	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		for _, o := range seed {
			if err := tx.Orders().Insert(ctx, o); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		counts, err := tx.Orders().CountByStatus(ctx, order.Filter{})
		require.NoError(t, err)
		assert.Equal(t, map[order.Status]int{order.StatusPaid: 2, order.StatusPending: 1}, counts)

		settled := order.Filter{PaymentStatuses: []order.PaymentStatus{order.PaymentApproved, order.PaymentPaid}}
		sum, err := tx.Orders().SumTotal(ctx, settled)
		require.NoError(t, err)
		assert.True(t, sum.Equal(decimal.NewFromInt(25)), sum.String())

		day := order.Filter{UserID: "u-2", From: base, To: base.Add(24 * time.Hour)}
		list, total, err := tx.Orders().List(ctx, day, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, list, 1)
		assert.Equal(t, "o2", list[0].ID)

		sum, err = tx.Orders().SumTotal(ctx, order.Filter{Status: order.StatusCancelled})
		require.NoError(t, err)
		assert.True(t, sum.IsZero())
		return nil
	}))
}

func TestWithinTx_SerializesConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.PutProduct(&inventory.Product{ID: "p-1", Stock: 1, TrackInventory: true, IsActive: true, IsAvailable: true})

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
				p, err := tx.Products().GetForUpdate(ctx, "p-1")
				if err != nil {
					return err
				}
				if err := p.Deduct(1, time.Now()); err != nil {
					return err
				}
				return tx.Products().Update(ctx, p)
			})
		}()
	}
	wg.Wait()
	close(results)

	ok := 0
	for err := range results {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
		}
	}
	assert.Equal(t, 1, ok)
}
