package shipping

import (
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound       = apperr.New(apperr.NotFound, "shipment not found")
	ErrShipmentExists = apperr.New(apperr.Conflict, "order already has a shipment")
	ErrNoDestination  = apperr.New(apperr.Validation, "destination address not found for user")
	ErrInvalidOption  = apperr.New(apperr.Validation, "shipping option is missing quote identifiers")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusQuoted    Status = "quoted"
	StatusConfirmed Status = "confirmed"
	StatusInTransit Status = "in_transit"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusQuoted, StatusConfirmed, StatusInTransit, StatusDelivered, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Final statuses are not polled again.
func (s Status) Final() bool {
	return s == StatusDelivered || s == StatusFailed || s == StatusCancelled
}

// Shipment is the single booked shipment of an order.
type Shipment struct {
	ID                   string
	OrderID              string
	DestinationAddressID string
	Carrier              string
	CarrierID            string
	Service              string
	LogisticType         string
	QuoteID              string
	ProviderShipmentID   string
	TrackingNumber       string
	Cost                 decimal.Decimal
	EstimatedDays        int
	EstimatedDelivery    *time.Time
	Status               Status
	StatusDescription    string
	DeliveredAt          *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Advance moves the shipment to a carrier-reported status. Delivered stamps DeliveredAt once.
func (s *Shipment) Advance(st Status, description string, now time.Time) bool {
	if !st.Valid() || (st == s.Status && description == s.StatusDescription) {
		return false
	}
	s.Status = st
	s.StatusDescription = description
	if st == StatusDelivered && s.DeliveredAt == nil {
		s.DeliveredAt = &now
	}
	s.UpdatedAt = now
	return true
}

func (s *Shipment) Clone() *Shipment {
	if s == nil {
		return nil
	}
	c := *s
	if s.EstimatedDelivery != nil {
		v := *s.EstimatedDelivery
		c.EstimatedDelivery = &v
	}
	if s.DeliveredAt != nil {
		v := *s.DeliveredAt
		c.DeliveredAt = &v
	}
	return &c
}
