package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/shopspring/decimal"

	"gorm.io/gorm"
)

type orderRepo struct{ db *gorm.DB }

func (r orderRepo) Insert(ctx context.Context, o *order.Order) error {
	rec, items := toOrderRecord(o)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return order.ErrNumberTaken.WithCause(err)
		}
		return fmt.Errorf("mysql: insert order: %w", err)
	}
	if len(items) > 0 {
		if err := r.db.WithContext(ctx).Create(&items).Error; err != nil {
			return fmt.Errorf("mysql: insert order items: %w", mapErr(err, order.ErrNotFound))
		}
	}
	return nil
}

func (r orderRepo) load(ctx context.Context, db *gorm.DB, query string, arg any) (*order.Order, error) {
	var rec orderRecord
	if err := db.WithContext(ctx).Where(query, arg).First(&rec).Error; err != nil {
		return nil, mapErr(err, order.ErrNotFound)
	}
	var items []orderItemRecord
	if err := r.db.WithContext(ctx).Where("order_id = ?", rec.ID).Order("position").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("mysql: load order items: %w", err)
	}
	return rec.toDomain(items), nil
}

func (r orderRepo) Get(ctx context.Context, id string) (*order.Order, error) {
	return r.load(ctx, r.db, "id = ?", id)
}

func (r orderRepo) GetForUpdate(ctx context.Context, id string) (*order.Order, error) {
	return r.load(ctx, forUpdate(r.db), "id = ?", id)
}

func (r orderRepo) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	return r.load(ctx, r.db, "number = ?", number)
}

// Update writes the order header. Items are immutable after creation.
func (r orderRepo) Update(ctx context.Context, o *order.Order) error {
	rec, _ := toOrderRecord(o)
	err := r.db.WithContext(ctx).Model(&orderRecord{}).Where("id = ?", o.ID).Select("*").Omit("id", "created_at").Updates(&rec).Error
	return mapErr(err, order.ErrNotFound)
}

func (r orderRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*order.Order, int, error) {
	return r.List(ctx, order.Filter{UserID: userID}, offset, limit)
}

// filtered scopes a query on the orders table to f.
func (r orderRepo) filtered(ctx context.Context, f order.Filter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&orderRecord{})
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if len(f.PaymentStatuses) > 0 {
		statuses := make([]string, len(f.PaymentStatuses))
		for i, ps := range f.PaymentStatuses {
			statuses[i] = string(ps)
		}
		q = q.Where("payment_status IN ?", statuses)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("created_at < ?", f.To)
	}
	return q
}

func (r orderRepo) List(ctx context.Context, f order.Filter, offset, limit int) ([]*order.Order, int, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var recs []orderRecord
	if err := r.filtered(ctx, f).Order("created_at DESC").Offset(offset).Limit(limit).Find(&recs).Error; err != nil {
		return nil, 0, err
	}
	out := make([]*order.Order, 0, len(recs))
	for _, rec := range recs {
		var items []orderItemRecord
		if err := r.db.WithContext(ctx).Where("order_id = ?", rec.ID).Order("position").Find(&items).Error; err != nil {
			return nil, 0, err
		}
		out = append(out, rec.toDomain(items))
	}
	return out, int(total), nil
}

func (r orderRepo) CountByStatus(ctx context.Context, f order.Filter) (map[order.Status]int, error) {
	var rows []struct {
		Status string
		N      int
	}
	if err := r.filtered(ctx, f).Select("status, COUNT(*) AS n").Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("mysql: count orders by status: %w", err)
	}
	out := make(map[order.Status]int, len(rows))
	for _, row := range rows {
		out[order.Status(row.Status)] = row.N
	}
	return out, nil
}

func (r orderRepo) SumTotal(ctx context.Context, f order.Filter) (decimal.Decimal, error) {
	var row struct{ Total decimal.NullDecimal }
	if err := r.filtered(ctx, f).Select("SUM(total) AS total").Scan(&row).Error; err != nil {
		return decimal.Zero, fmt.Errorf("mysql: sum order totals: %w", err)
	}
	if !row.Total.Valid {
		return decimal.Zero, nil
	}
	return row.Total.Decimal, nil
}

func (r orderRepo) CountByNumberPrefix(ctx context.Context, prefix string) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&orderRecord{}).Where("number LIKE ?", prefix+"%").Count(&n).Error
	return int(n), err
}

func (r orderRepo) NumberExists(ctx context.Context, number string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&orderRecord{}).Where("number = ?", number).Limit(1).Count(&n).Error
	return n > 0, err
}
