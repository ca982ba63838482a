package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/shopspring/decimal"
)

type orderRepo struct{ st *state }

func (r orderRepo) Insert(_ context.Context, o *order.Order) error {
	if o == nil || o.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}
	if _, exists := r.st.orders[o.ID]; exists {
		return order.ErrNumberTaken.WithCause(fmt.Errorf("duplicate id %s", o.ID))
	}
	for _, existing := range r.st.orders {
		if existing.Number == o.Number {
			return order.ErrNumberTaken
		}
	}
	r.st.orders[o.ID] = o.Clone()
	return nil
}

func (r orderRepo) Get(_ context.Context, id string) (*order.Order, error) {
	o, ok := r.st.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o.Clone(), nil
}

func (r orderRepo) GetForUpdate(ctx context.Context, id string) (*order.Order, error) {
	return r.Get(ctx, id)
}

func (r orderRepo) GetByNumber(_ context.Context, number string) (*order.Order, error) {
	for _, o := range r.st.orders {
		if o.Number == number {
			return o.Clone(), nil
		}
	}
	return nil, order.ErrNotFound
}

func (r orderRepo) Update(_ context.Context, o *order.Order) error {
	if o == nil || o.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}
	if _, exists := r.st.orders[o.ID]; !exists {
		return order.ErrNotFound
	}
	r.st.orders[o.ID] = o.Clone()
	return nil
}

func (r orderRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*order.Order, int, error) {
	return r.List(ctx, order.Filter{UserID: userID}, offset, limit)
}

func (r orderRepo) matching(f order.Filter) []*order.Order {
	var all []*order.Order
	for _, o := range r.st.orders {
		if f.Matches(o) {
			all = append(all, o)
		}
	}
	return all
}

func (r orderRepo) List(_ context.Context, f order.Filter, offset, limit int) ([]*order.Order, int, error) {
	all := r.matching(f)
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	out := page(all, offset, limit)
	res := make([]*order.Order, len(out))
	for i, o := range out {
		res[i] = o.Clone()
	}
	return res, len(all), nil
}

func (r orderRepo) CountByStatus(_ context.Context, f order.Filter) (map[order.Status]int, error) {
	out := make(map[order.Status]int)
	for _, o := range r.matching(f) {
		out[o.Status]++
	}
	return out, nil
}

func (r orderRepo) SumTotal(_ context.Context, f order.Filter) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, o := range r.matching(f) {
		sum = sum.Add(o.Total)
	}
	return sum, nil
}

func (r orderRepo) CountByNumberPrefix(_ context.Context, prefix string) (int, error) {
	n := 0
	for _, o := range r.st.orders {
		if strings.HasPrefix(o.Number, prefix) {
			n++
		}
	}
	return n, nil
}

func (r orderRepo) NumberExists(_ context.Context, number string) (bool, error) {
	for _, o := range r.st.orders {
		if o.Number == number {
			return true, nil
		}
	}
	return false, nil
}
