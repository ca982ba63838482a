package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"
)

type paymentRepo struct{ st *state }

func (r paymentRepo) checkUnique(p *payment.Payment) error {
	for id, existing := range r.st.payments {
		if id == p.ID {
			continue
		}
		if p.ProviderPaymentID != "" && existing.ProviderPaymentID == p.ProviderPaymentID {
			return payment.ErrDuplicateRemote
		}
		if p.IdempotencyKey != "" && existing.IdempotencyKey == p.IdempotencyKey {
			return apperr.New(apperr.Conflict, "payment idempotency key already used")
		}
	}
	return nil
}

func (r paymentRepo) Insert(_ context.Context, p *payment.Payment) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("payment repository: id is required")
	}
	if _, exists := r.st.payments[p.ID]; exists {
		return apperr.Newf(apperr.Conflict, "payment %s already exists", p.ID)
	}
	if err := r.checkUnique(p); err != nil {
		return err
	}
	r.st.payments[p.ID] = p.Clone()
	return nil
}

func (r paymentRepo) Get(_ context.Context, id string) (*payment.Payment, error) {
	p, ok := r.st.payments[id]
	if !ok {
		return nil, payment.ErrNotFound
	}
	return p.Clone(), nil
}

func (r paymentRepo) GetForUpdate(ctx context.Context, id string) (*payment.Payment, error) {
	return r.Get(ctx, id)
}

func (r paymentRepo) GetByProviderID(_ context.Context, providerID string) (*payment.Payment, error) {
	if providerID == "" {
		return nil, payment.ErrNotFound
	}
	for _, p := range r.st.payments {
		if p.ProviderPaymentID == providerID {
			return p.Clone(), nil
		}
	}
	return nil, payment.ErrNotFound
}

func (r paymentRepo) GetLatestByOrder(_ context.Context, orderID string) (*payment.Payment, error) {
	var latest *payment.Payment
	for _, p := range r.st.payments {
		if p.OrderID != orderID {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, payment.ErrNotFound
	}
	return latest.Clone(), nil
}

func (r paymentRepo) Update(_ context.Context, p *payment.Payment) error {
	if _, ok := r.st.payments[p.ID]; !ok {
		return payment.ErrNotFound
	}
	if err := r.checkUnique(p); err != nil {
		return err
	}
	r.st.payments[p.ID] = p.Clone()
	return nil
}

func (r paymentRepo) ListByUser(_ context.Context, userID string, offset, limit int) ([]*payment.Payment, int, error) {
	var all []*payment.Payment
	for _, p := range r.st.payments {
		if p.UserID == userID {
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	out := page(all, offset, limit)
	res := make([]*payment.Payment, len(out))
	for i, p := range out {
		res[i] = p.Clone()
	}
	return res, len(all), nil
}

func (r paymentRepo) AppendTransaction(_ context.Context, t *payment.Transaction) error {
	if _, ok := r.st.payments[t.PaymentID]; !ok {
		return payment.ErrNotFound
	}
	c := *t
	r.st.transactions[t.PaymentID] = append(r.st.transactions[t.PaymentID], &c)
	return nil
}

func (r paymentRepo) Transactions(_ context.Context, paymentID string) ([]*payment.Transaction, error) {
	src := r.st.transactions[paymentID]
	out := make([]*payment.Transaction, len(src))
	for i, t := range src {
		c := *t
		out[i] = &c
	}
	return out, nil
}
