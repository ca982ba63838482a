package mysql

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/customer"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"

	"gorm.io/gorm"
)

type productRepo struct{ db *gorm.DB }

func (r productRepo) get(ctx context.Context, db *gorm.DB, id string) (*inventory.Product, error) {
	var rec productRecord
	if err := db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, mapErr(err, inventory.ErrNotFound)
	}
	return rec.toDomain(), nil
}

func (r productRepo) Get(ctx context.Context, id string) (*inventory.Product, error) {
	return r.get(ctx, r.db, id)
}

func (r productRepo) GetForUpdate(ctx context.Context, id string) (*inventory.Product, error) {
	return r.get(ctx, forUpdate(r.db), id)
}

func (r productRepo) Update(ctx context.Context, p *inventory.Product) error {
	rec := toProductRecord(p)
	return r.db.WithContext(ctx).Model(&productRecord{}).Where("id = ?", p.ID).Select("*").Omit("id").Updates(&rec).Error
}

type cartRepo struct{ db *gorm.DB }

func (r cartRepo) GetByUser(ctx context.Context, userID string) (*cart.Cart, error) {
	var rec cartRecord
	err := r.db.WithContext(ctx).First(&rec, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &cart.Cart{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	var items []cartItemRecord
	if err := r.db.WithContext(ctx).Where("cart_id = ?", rec.ID).Find(&items).Error; err != nil {
		return nil, err
	}
	return rec.toDomain(items), nil
}

func (r cartRepo) Clear(ctx context.Context, cartID string) error {
	if cartID == "" {
		return nil
	}
	return r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&cartItemRecord{}).Error
}

type customerRepo struct{ db *gorm.DB }

func (r customerRepo) GetUser(ctx context.Context, id string) (*customer.User, error) {
	var rec userRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, mapErr(err, customer.ErrUserNotFound)
	}
	return rec.toDomain(), nil
}

func (r customerRepo) GetAddress(ctx context.Context, id string) (*customer.Address, error) {
	var rec addressRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, mapErr(err, customer.ErrAddressNotFound)
	}
	return rec.toDomain(), nil
}
