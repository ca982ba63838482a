package inventory

import (
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = apperr.New(apperr.NotFound, "product not found")
	ErrInvalidQuantity   = apperr.New(apperr.Validation, "quantity must be greater than zero")
	ErrInsufficientStock = apperr.New(apperr.Conflict, "insufficient stock")
	ErrUnavailable       = apperr.New(apperr.Conflict, "product is not available")
)

// Product is the catalog read model the checkout flow depends on.
type Product struct {
	ID             string
	Name           string
	Brand          string
	Image          string
	Price          decimal.Decimal
	FinalPrice     decimal.Decimal
	Stock          int
	TrackInventory bool
	IsActive       bool
	IsAvailable    bool
	WeightGrams    int
	LengthCM       int
	WidthCM        int
	HeightCM       int
	UpdatedAt      time.Time
}

// SellingPrice is the post-discount price, falling back to the list price.
func (p *Product) SellingPrice() decimal.Decimal {
	if p.FinalPrice.IsPositive() {
		return p.FinalPrice
	}
	return p.Price
}

// CanFulfil checks that quantity units can be sold right now.
func (p *Product) CanFulfil(quantity int) error {
	if !p.IsActive {
		return ErrUnavailable.WithCause(fmt.Errorf("product %s is inactive", p.ID))
	}
	if !p.TrackInventory {
		return nil
	}
	if !p.IsAvailable || p.Stock < quantity {
		return &InsufficientStockError{ProductID: p.ID, ProductName: p.Name, Requested: quantity, Available: p.Stock}
	}
	return nil
}

// Deduct removes quantity units from tracked stock.
func (p *Product) Deduct(quantity int, now time.Time) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if !p.TrackInventory {
		return nil
	}
	if quantity > p.Stock {
		return &InsufficientStockError{ProductID: p.ID, ProductName: p.Name, Requested: quantity, Available: p.Stock}
	}
	p.Stock -= quantity
	p.UpdatedAt = now
	return nil
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// InsufficientStockError names the product whose stock could not cover the request.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q (%s): requested %d, available %d",
		e.ProductName, e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Kind() apperr.Kind { return apperr.Conflict }

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }
