package order

import (
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound            = apperr.New(apperr.NotFound, "order not found")
	ErrEmptyCart           = apperr.New(apperr.Validation, "cart is empty")
	ErrAddressRequired     = apperr.New(apperr.Validation, "shipping address is required for delivery orders")
	ErrInvalidAddress      = apperr.New(apperr.Validation, "shipping address not found for user")
	ErrInvalidShippingCost = apperr.New(apperr.Validation, "shipping cost must not be negative")
	ErrInvalidStatus       = apperr.New(apperr.Validation, "unknown order status")
	ErrCannotCancelPaid    = apperr.New(apperr.Conflict, "order with settled payment cannot be cancelled, refund it instead")
	ErrForbidden           = apperr.New(apperr.Forbidden, "order belongs to another user")
	ErrNumberTaken         = apperr.New(apperr.Conflict, "order number already exists")
)

type DeliveryType string

const (
	DeliveryPickup   DeliveryType = "pickup"
	DeliveryDelivery DeliveryType = "delivery"
)

func (d DeliveryType) Valid() bool {
	return d == DeliveryPickup || d == DeliveryDelivery
}

// Item is an immutable snapshot of one product line at purchase time.
type Item struct {
	ID           string
	OrderID      string
	ProductID    string
	Quantity     int
	UnitPrice    decimal.Decimal
	TotalPrice   decimal.Decimal
	ProductName  string
	ProductBrand string
	ProductImage string
}

// ShippingSnapshot is a denormalized copy of the destination taken at order creation.
type ShippingSnapshot struct {
	Recipient    string
	Phone        string
	Address      string
	Province     string
	City         string
	PostalCode   string
	Instructions string
}

type Order struct {
	ID                string
	Number            string
	UserID            string
	Items             []Item
	DeliveryType      DeliveryType
	ShippingAddressID string
	Shipping          *ShippingSnapshot
	Subtotal          decimal.Decimal
	ShippingCost      decimal.Decimal
	Tax               decimal.Decimal
	Total             decimal.Decimal
	Status            Status
	PaymentStatus     PaymentStatus
	ProviderPaymentID string
	Notes             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Draft carries everything needed to price a new order.
type Draft struct {
	ID                string
	Number            string
	UserID            string
	DeliveryType      DeliveryType
	ShippingAddressID string
	Shipping          *ShippingSnapshot
	Items             []Item
	TaxRate           decimal.Decimal
	Notes             string
}

// New prices the draft and returns a pending order. Item totals, subtotal, tax and total are derived here.
func New(d Draft, now time.Time) (*Order, error) {
	if len(d.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if d.DeliveryType == DeliveryDelivery && d.Shipping == nil {
		return nil, ErrAddressRequired
	}

	items := make([]Item, len(d.Items))
	subtotal := decimal.Zero
	for i, it := range d.Items {
		it.OrderID = d.ID
		it.TotalPrice = it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(it.TotalPrice)
		items[i] = it
	}

	o := &Order{
		ID:                d.ID,
		Number:            d.Number,
		UserID:            d.UserID,
		Items:             items,
		DeliveryType:      d.DeliveryType,
		ShippingAddressID: d.ShippingAddressID,
		Shipping:          d.Shipping,
		Subtotal:          subtotal,
		ShippingCost:      decimal.Zero,
		Tax:               subtotal.Mul(d.TaxRate).Round(2),
		Status:            StatusPending,
		PaymentStatus:     PaymentPending,
		Notes:             d.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	o.Recalculate()
	return o, nil
}

// Recalculate restores total = subtotal + shipping cost + tax.
func (o *Order) Recalculate() {
	o.Total = o.Subtotal.Add(o.ShippingCost).Add(o.Tax)
}

func (o *Order) ApplyShipping(cost decimal.Decimal, now time.Time) error {
	if cost.IsNegative() {
		return ErrInvalidShippingCost
	}
	o.ShippingCost = cost
	o.Recalculate()
	if o.Status == StatusAwaitingShippingCost {
		o.Status = StatusShippingCostSet
	}
	o.touch(now)
	return nil
}

// LinkPayment records the provider correlation id for this order.
func (o *Order) LinkPayment(providerPaymentID string, now time.Time) {
	o.ProviderPaymentID = providerPaymentID
	o.touch(now)
}

func (o *Order) MarkPaid(now time.Time) {
	o.Status = StatusPaid
	o.PaymentStatus = PaymentPaid
	o.touch(now)
}

func (o *Order) SetPaymentStatus(ps PaymentStatus, now time.Time) {
	o.PaymentStatus = ps
	o.touch(now)
}

// OwnedBy reports whether userID may read this order.
func (o *Order) OwnedBy(userID string) bool {
	return o.UserID == userID
}

func (o *Order) touch(now time.Time) {
	o.UpdatedAt = now
}

// Clone returns a deep copy safe to mutate independently.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = append([]Item(nil), o.Items...)
	if o.Shipping != nil {
		s := *o.Shipping
		c.Shipping = &s
	}
	return &c
}
