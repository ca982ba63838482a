package mysql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"

	"gorm.io/gorm"
)

var errIdempotencyKeyTaken = apperr.New(apperr.Conflict, "payment idempotency key already used")

type paymentRepo struct{ db *gorm.DB }

func (r paymentRepo) Insert(ctx context.Context, p *payment.Payment) error {
	rec := toPaymentRecord(p)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("mysql: insert payment: %w", duplicatePayment(err))
	}
	return nil
}

func (r paymentRepo) first(ctx context.Context, db *gorm.DB, query string, args ...any) (*payment.Payment, error) {
	var rec paymentRecord
	if err := db.WithContext(ctx).Where(query, args...).Order("created_at DESC").First(&rec).Error; err != nil {
		return nil, mapErr(err, payment.ErrNotFound)
	}
	return rec.toDomain(), nil
}

func (r paymentRepo) Get(ctx context.Context, id string) (*payment.Payment, error) {
	return r.first(ctx, r.db, "id = ?", id)
}

func (r paymentRepo) GetForUpdate(ctx context.Context, id string) (*payment.Payment, error) {
	return r.first(ctx, forUpdate(r.db), "id = ?", id)
}

func (r paymentRepo) GetByProviderID(ctx context.Context, providerPaymentID string) (*payment.Payment, error) {
	if providerPaymentID == "" {
		return nil, payment.ErrNotFound
	}
	return r.first(ctx, r.db, "provider_payment_id = ?", providerPaymentID)
}

func (r paymentRepo) GetLatestByOrder(ctx context.Context, orderID string) (*payment.Payment, error) {
	return r.first(ctx, r.db, "order_id = ?", orderID)
}

func (r paymentRepo) Update(ctx context.Context, p *payment.Payment) error {
	rec := toPaymentRecord(p)
	err := r.db.WithContext(ctx).Model(&paymentRecord{}).Where("id = ?", p.ID).Select("*").Omit("id", "created_at").Updates(&rec).Error
	return duplicatePayment(err)
}

func (r paymentRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*payment.Payment, int, error) {
	var total int64
	q := r.db.WithContext(ctx).Model(&paymentRecord{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var recs []paymentRecord
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&recs).Error; err != nil {
		return nil, 0, err
	}
	out := make([]*payment.Payment, len(recs))
	for i, rec := range recs {
		out[i] = rec.toDomain()
	}
	return out, int(total), nil
}

func (r paymentRepo) AppendTransaction(ctx context.Context, t *payment.Transaction) error {
	rec := toTransactionRecord(t)
	return mapErr(r.db.WithContext(ctx).Create(&rec).Error, payment.ErrNotFound)
}

func (r paymentRepo) Transactions(ctx context.Context, paymentID string) ([]*payment.Transaction, error) {
	var recs []transactionRecord
	if err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).Order("created_at").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*payment.Transaction, len(recs))
	for i, rec := range recs {
		out[i] = rec.toDomain()
	}
	return out, nil
}

// duplicatePayment tells an idempotency key collision apart from a provider id one.
func duplicatePayment(err error) error {
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	if strings.Contains(err.Error(), "idempotency_key") {
		return errIdempotencyKeyTaken.WithCause(err)
	}
	return payment.ErrDuplicateRemote.WithCause(err)
}
