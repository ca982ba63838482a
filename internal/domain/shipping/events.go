package shipping

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookedEvent struct {
	ShipmentID     string
	OrderID        string
	Carrier        string
	TrackingNumber string
	Cost           decimal.Decimal
	OccurredAt     time.Time
}

func (BookedEvent) EventName() string { return "shipment.booked" }

func NewBookedEvent(s *Shipment, now time.Time) BookedEvent {
	return BookedEvent{
		ShipmentID:     s.ID,
		OrderID:        s.OrderID,
		Carrier:        s.Carrier,
		TrackingNumber: s.TrackingNumber,
		Cost:           s.Cost,
		OccurredAt:     now,
	}
}
