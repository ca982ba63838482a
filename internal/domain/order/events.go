package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreatedEvent is emitted after an order has been committed.
type CreatedEvent struct {
	OrderID      string
	Number       string
	UserID       string
	DeliveryType DeliveryType
	ItemCount    int
	Total        decimal.Decimal
	OccurredAt   time.Time
}

func (CreatedEvent) EventName() string { return "order.created" }

func NewCreatedEvent(o *Order, now time.Time) CreatedEvent {
	return CreatedEvent{
		OrderID:      o.ID,
		Number:       o.Number,
		UserID:       o.UserID,
		DeliveryType: o.DeliveryType,
		ItemCount:    len(o.Items),
		Total:        o.Total,
		OccurredAt:   now,
	}
}

// DeliveryCoordinationEvent asks the logistics team to arrange a delivery order.
type DeliveryCoordinationEvent struct {
	OrderID    string
	Number     string
	UserID     string
	Shipping   ShippingSnapshot
	OccurredAt time.Time
}

func (DeliveryCoordinationEvent) EventName() string { return "order.delivery_coordination" }

func NewDeliveryCoordinationEvent(o *Order, now time.Time) DeliveryCoordinationEvent {
	ev := DeliveryCoordinationEvent{
		OrderID:    o.ID,
		Number:     o.Number,
		UserID:     o.UserID,
		OccurredAt: now,
	}
	if o.Shipping != nil {
		ev.Shipping = *o.Shipping
	}
	return ev
}
