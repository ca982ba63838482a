package order

import "time"

// Filter narrows order listings. Zero fields match everything; From is
// inclusive and To exclusive.
type Filter struct {
	Status          Status
	PaymentStatuses []PaymentStatus
	UserID          string
	From            time.Time
	To              time.Time
}

func (f Filter) Matches(o *Order) bool {
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if len(f.PaymentStatuses) > 0 && !containsPaymentStatus(f.PaymentStatuses, o.PaymentStatus) {
		return false
	}
	if f.UserID != "" && o.UserID != f.UserID {
		return false
	}
	if !f.From.IsZero() && o.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !o.CreatedAt.Before(f.To) {
		return false
	}
	return true
}

func containsPaymentStatus(list []PaymentStatus, ps PaymentStatus) bool {
	for _, s := range list {
		if s == ps {
			return true
		}
	}
	return false
}
