package mysql

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/shipping"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/webhook"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type shipmentRepo struct{ db *gorm.DB }

func (r shipmentRepo) Insert(ctx context.Context, s *shipping.Shipment) error {
	rec := toShipmentRecord(s)
	err := r.db.WithContext(ctx).Create(&rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shipping.ErrShipmentExists.WithCause(err)
	}
	return err
}

func (r shipmentRepo) GetByOrder(ctx context.Context, orderID string) (*shipping.Shipment, error) {
	var rec shipmentRecord
	if err := r.db.WithContext(ctx).First(&rec, "order_id = ?", orderID).Error; err != nil {
		return nil, mapErr(err, shipping.ErrNotFound)
	}
	return rec.toDomain(), nil
}

func (r shipmentRepo) Update(ctx context.Context, s *shipping.Shipment) error {
	rec := toShipmentRecord(s)
	return r.db.WithContext(ctx).Model(&shipmentRecord{}).Where("id = ?", s.ID).Select("*").Omit("id", "created_at").Updates(&rec).Error
}

type deliveryRepo struct{ db *gorm.DB }

func (r deliveryRepo) Get(ctx context.Context, provider, id string) (*webhook.Delivery, error) {
	var rec deliveryRecord
	err := r.db.WithContext(ctx).First(&rec, "provider = ? AND delivery_id = ?", provider, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

// Save upserts on (provider, delivery_id).
func (r deliveryRepo) Save(ctx context.Context, d *webhook.Delivery) error {
	rec := toDeliveryRecord(d)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "delivery_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"topic", "action", "resource_id", "request_id", "signature_valid", "outcome", "error", "processed_at"}),
	}).Create(&rec).Error
}
