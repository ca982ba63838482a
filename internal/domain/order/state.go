package order

import "time"

type Status string

const (
	StatusPending              Status = "pending"
	StatusAwaitingShippingCost Status = "awaiting_shipping_cost"
	StatusShippingCostSet      Status = "shipping_cost_set"
	StatusConfirmed            Status = "confirmed"
	StatusPaid                 Status = "paid"
	StatusProcessing           Status = "processing"
	StatusShipped              Status = "shipped"
	StatusDelivered            Status = "delivered"
	StatusCancelled            Status = "cancelled"
)

var knownStatuses = map[Status]struct{}{
	StatusPending: {}, StatusAwaitingShippingCost: {}, StatusShippingCostSet: {},
	StatusConfirmed: {}, StatusPaid: {}, StatusProcessing: {}, StatusShipped: {},
	StatusDelivered: {}, StatusCancelled: {},
}

func (s Status) Valid() bool {
	_, ok := knownStatuses[s]
	return ok
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentApproved  PaymentStatus = "approved"
	PaymentPaid      PaymentStatus = "paid"
	PaymentRejected  PaymentStatus = "rejected"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentRefunded  PaymentStatus = "refunded"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentApproved, PaymentPaid, PaymentRejected, PaymentCancelled, PaymentRefunded:
		return true
	}
	return false
}

// Settled reports whether money has been captured for the order.
func (p PaymentStatus) Settled() bool {
	return p == PaymentApproved || p == PaymentPaid
}

// StatusChange is a requested manual transition.
type StatusChange struct {
	Status        Status
	PaymentStatus *PaymentStatus
	Notes         *string
}

// Transition applies a manual status change. Cancelling is refused once payment is settled;
// every other move between known statuses is allowed.
func (o *Order) Transition(ch StatusChange, now time.Time) error {
	if !ch.Status.Valid() {
		return ErrInvalidStatus
	}
	if ch.PaymentStatus != nil && !ch.PaymentStatus.Valid() {
		return ErrInvalidStatus
	}
	if ch.Status == StatusCancelled {
		effective := o.PaymentStatus
		if ch.PaymentStatus != nil && ch.PaymentStatus.Settled() {
			effective = *ch.PaymentStatus
		}
		if effective.Settled() {
			return ErrCannotCancelPaid
		}
	}

	o.Status = ch.Status
	if ch.PaymentStatus != nil {
		o.PaymentStatus = *ch.PaymentStatus
	}
	if ch.Notes != nil {
		o.Notes = *ch.Notes
	}
	o.touch(now)
	return nil
}
