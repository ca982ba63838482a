package order

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/ledger"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

type OrderPage struct {
	Orders []*domain.Order
	Total  int
	Page   int
	Limit  int
}

// ListFilter is the admin listing criteria. Zero fields match everything;
// From is inclusive and To exclusive.
type ListFilter struct {
	Status        string
	PaymentStatus string
	UserID        string
	From          time.Time
	To            time.Time
}

func (f ListFilter) Validate() error {
	var checks []apperr.Check
	if f.Status != "" && !domain.Status(f.Status).Valid() {
		checks = append(checks, &apperr.FieldError{Field: "status", Reason: "unknown order status"})
	}
	if f.PaymentStatus != "" && !domain.PaymentStatus(f.PaymentStatus).Valid() {
		checks = append(checks, &apperr.FieldError{Field: "payment_status", Reason: "unknown payment status"})
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		checks = append(checks, &apperr.FieldError{Field: "to", Reason: "must be after from"})
	}
	return apperr.Validate("invalid order filter", checks...)
}

func (f ListFilter) toDomain() domain.Filter {
	df := domain.Filter{Status: domain.Status(f.Status), UserID: f.UserID, From: f.From, To: f.To}
	if f.PaymentStatus != "" {
		df.PaymentStatuses = []domain.PaymentStatus{domain.PaymentStatus(f.PaymentStatus)}
	}
	return df
}

// Statistics is the admin dashboard summary. Revenue sums orders whose payment settled.
type Statistics struct {
	TotalOrders   int
	ByStatus      map[domain.Status]int
	SettledOrders int
	Revenue       decimal.Decimal
	Today         int
	ThisMonth     int
}

// Queries serves read-only order lookups.
type Queries struct {
	store ledger.Store
	now   application.Clock
	get   *application.Instrument
	list  *application.Instrument
	byNum *application.Instrument
	all   *application.Instrument
	stats *application.Instrument
}

func NewQueries(store ledger.Store, now application.Clock, tel observability.Observability) *Queries {
	if now == nil {
		now = application.SystemClock
	}
	return &Queries{
		store: store,
		now:   now,
		get:   application.NewInstrument(tel, orderService, "order.get"),
		list:  application.NewInstrument(tel, orderService, "order.list_for_user"),
		byNum: application.NewInstrument(tel, orderService, "order.get_by_number"),
		all:   application.NewInstrument(tel, orderService, "order.list_all"),
		stats: application.NewInstrument(tel, orderService, "order.statistics"),
	}
}

// Get returns an order the actor owns; admins may read any order.
func (q *Queries) Get(ctx context.Context, actor application.Actor, orderID string) (_ *domain.Order, err error) {
	ctx, call := q.get.Start(ctx, "GetOrder", attribute.String("order.id", orderID))
	defer func() { call.End(err) }()

	var o *domain.Order
	err = q.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var getErr error
		o, getErr = tx.Orders().Get(ctx, orderID)
		return getErr
	})
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(o.UserID) {
		call.Fail("FORBIDDEN")
		return nil, domain.ErrForbidden
	}
	return o, nil
}

func (q *Queries) ListForUser(ctx context.Context, userID string, page, limit int) (_ *OrderPage, err error) {
	ctx, call := q.list.Start(ctx, "ListOrders", attribute.String("order.user_id", userID))
	defer func() { call.End(err) }()

	if err = apperr.Validate("invalid order listing", apperr.Required("user_id", userID)); err != nil {
		call.Fail("INVALID_INPUT")
		return nil, err
	}

	offset, size := application.Page(page, limit)
	res := &OrderPage{Page: offset/size + 1, Limit: size}
	err = q.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var listErr error
		res.Orders, res.Total, listErr = tx.Orders().ListByUser(ctx, userID, offset, size)
		return listErr
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (q *Queries) GetByNumber(ctx context.Context, number string) (_ *domain.Order, err error) {
	ctx, call := q.byNum.Start(ctx, "GetOrderByNumber", attribute.String("order.number", number))
	defer func() { call.End(err) }()

	var o *domain.Order
	err = q.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var getErr error
		o, getErr = tx.Orders().GetByNumber(ctx, number)
		return getErr
	})
	return o, err
}

// ListAll pages through every order matching f, newest first.
func (q *Queries) ListAll(ctx context.Context, f ListFilter, page, limit int) (_ *OrderPage, err error) {
	ctx, call := q.all.Start(ctx, "ListAllOrders",
		attribute.String("order.filter.status", f.Status),
		attribute.String("order.filter.payment_status", f.PaymentStatus),
	)
	defer func() { call.End(err) }()

	if err = f.Validate(); err != nil {
		call.Fail("INVALID_INPUT")
		return nil, err
	}

	offset, size := application.Page(page, limit)
	res := &OrderPage{Page: offset/size + 1, Limit: size}
	err = q.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var listErr error
		res.Orders, res.Total, listErr = tx.Orders().List(ctx, f.toDomain(), offset, size)
		return listErr
	})
	if err != nil {
		return nil, err
	}
	call.Field("total", res.Total)
	return res, nil
}

// Statistics counts orders by status and period in the clock's location.
func (q *Queries) Statistics(ctx context.Context) (_ *Statistics, err error) {
	ctx, call := q.stats.Start(ctx, "OrderStatistics")
	defer func() { call.End(err) }()

	now := q.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	settled := []domain.PaymentStatus{domain.PaymentApproved, domain.PaymentPaid}

	st := &Statistics{}
	err = q.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		repo := tx.Orders()
		var txErr error
		if st.ByStatus, txErr = repo.CountByStatus(ctx, domain.Filter{}); txErr != nil {
			return txErr
		}
		st.TotalOrders = sumCounts(st.ByStatus)

		counts, txErr := repo.CountByStatus(ctx, domain.Filter{PaymentStatuses: settled})
		if txErr != nil {
			return txErr
		}
		st.SettledOrders = sumCounts(counts)
		if st.Revenue, txErr = repo.SumTotal(ctx, domain.Filter{PaymentStatuses: settled}); txErr != nil {
			return txErr
		}

		if counts, txErr = repo.CountByStatus(ctx, domain.Filter{From: dayStart, To: dayStart.AddDate(0, 0, 1)}); txErr != nil {
			return txErr
		}
		st.Today = sumCounts(counts)
		if counts, txErr = repo.CountByStatus(ctx, domain.Filter{From: monthStart, To: monthStart.AddDate(0, 1, 0)}); txErr != nil {
			return txErr
		}
		st.ThisMonth = sumCounts(counts)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

func sumCounts(m map[domain.Status]int) int {
	n := 0
	for _, c := range m {
		n += c
	}
	return n
}
